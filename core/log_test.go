package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCommitLogContentsSingleModification(t *testing.T) {
	store, dir := SetupTempStore(t)

	buf, err := store.Map("segment1", 10)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	tid, err := store.BeginTrans([][]byte{buf})
	if err != nil {
		t.Fatalf("BeginTrans failed: %v", err)
	}
	if err := store.AboutToModify(tid, buf, 0, 3); err != nil {
		t.Fatalf("about_to_modify failed: %v", err)
	}
	copy(buf[0:3], "abc")

	if err := store.CommitTrans(tid); err != nil {
		t.Fatalf("CommitTrans failed: %v", err)
	}

	logBytes, err := os.ReadFile(filepath.Join(dir, "rvm.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	want := "TRANSACTION\nsegment1\n0\n3\nabc\n"
	if string(logBytes) != want {
		t.Errorf("log mismatch:\n got: %q\nwant: %q", string(logBytes), want)
	}
}

// TestCommitLogByteFormat pins the exact byte accounting of the text
// log format for a three-modification transaction across two
// segments, so any format regression fails loudly. Each record is
// segname + '\n' + offset + '\n' + size + '\n' + payload + '\n'.
func TestCommitLogByteFormat(t *testing.T) {
	store, dir := SetupTempStore(t)

	seg1, err := store.Map("segment1", 10)
	if err != nil {
		t.Fatalf("map segment1: %v", err)
	}
	seg2, err := store.Map("segment2", 10)
	if err != nil {
		t.Fatalf("map segment2: %v", err)
	}

	tid, err := store.BeginTrans([][]byte{seg1, seg2})
	if err != nil {
		t.Fatalf("BeginTrans failed: %v", err)
	}

	if err := store.AboutToModify(tid, seg1, 0, 1); err != nil {
		t.Fatalf("about_to_modify seg1[0:1]: %v", err)
	}
	seg1[0] = 'a'

	if err := store.AboutToModify(tid, seg2, 0, 1); err != nil {
		t.Fatalf("about_to_modify seg2[0:1]: %v", err)
	}
	seg2[0] = 'b'

	if err := store.AboutToModify(tid, seg1, 1, 3); err != nil {
		t.Fatalf("about_to_modify seg1[1:4]: %v", err)
	}
	copy(seg1[1:4], "xyz")

	if err := store.CommitTrans(tid); err != nil {
		t.Fatalf("CommitTrans failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "rvm.log"))
	if err != nil {
		t.Fatalf("stat log: %v", err)
	}

	const wantSize = 59 // 12 ("TRANSACTION\n") + 15 + 15 + 17, see field-by-field comment above
	if info.Size() != wantSize {
		t.Errorf("expected log of %d bytes, got %d", wantSize, info.Size())
	}
}
