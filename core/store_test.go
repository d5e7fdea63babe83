package core

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitRejectsOversizeDirectory(t *testing.T) {
	longDir := strings.Repeat("A", 130)
	if _, err := Init(longDir); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
}

func TestInitReturnsGivenPrefix(t *testing.T) {
	dir := t.TempDir()
	store, err := Init(dir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if store.dir != dir {
		t.Errorf("expected prefix %q, got %q", dir, store.dir)
	}
}

func TestMapCreatesBackingFileOfExactSize(t *testing.T) {
	store, dir := SetupTempStore(t)

	if _, err := store.Map("segment1", 10000); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "segment1"))
	if err != nil {
		t.Fatalf("stat backing file: %v", err)
	}
	if info.Size() != 10000 {
		t.Errorf("expected backing file of 10000 bytes, got %d", info.Size())
	}
}

func TestMapLoadsExistingFileContents(t *testing.T) {
	store, dir := SetupTempStore(t)

	if err := os.WriteFile(filepath.Join(dir, "segment1"), []byte("Hello World!"), 0o644); err != nil {
		t.Fatalf("seed backing file: %v", err)
	}

	buf, err := store.Map("segment1", 10000)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if !bytes.Equal(buf[:12], []byte("Hello World!")) {
		t.Errorf("expected leading bytes %q, got %q", "Hello World!", buf[:12])
	}
}

func TestMapIdempotentOnNonIncreasingSize(t *testing.T) {
	store, _ := SetupTempStore(t)

	buf, err := store.Map("segment1", 10000)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	buf2, err := store.Map("segment1", 10000)
	if err != nil {
		t.Fatalf("second Map failed: %v", err)
	}
	if &buf[0] != &buf2[0] {
		t.Errorf("expected same buffer on repeated map with equal size")
	}
	if len(store.catalog) != 1 {
		t.Errorf("expected catalog size 1, got %d", len(store.catalog))
	}

	buf3, err := store.Map("segment1", 5000)
	if err != nil {
		t.Fatalf("smaller Map failed: %v", err)
	}
	if &buf[0] != &buf3[0] {
		t.Errorf("expected same buffer on map with smaller size")
	}
	if len(store.catalog) != 1 {
		t.Errorf("expected catalog size 1, got %d", len(store.catalog))
	}
}

func TestMapGrowsOnLargerSize(t *testing.T) {
	store, dir := SetupTempStore(t)

	buf, err := store.Map("segment1", 10000)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	copy(buf, []byte("keep-me"))

	buf2, err := store.Map("segment1", 20000)
	if err != nil {
		t.Fatalf("grow Map failed: %v", err)
	}
	if len(buf2) != 20000 {
		t.Errorf("expected grown size 20000, got %d", len(buf2))
	}
	if !bytes.Equal(buf2[:7], []byte("keep-me")) {
		t.Errorf("expected preserved prefix, got %q", buf2[:7])
	}

	info, err := os.Stat(filepath.Join(dir, "segment1"))
	if err != nil {
		t.Fatalf("stat backing file: %v", err)
	}
	if info.Size() != 20000 {
		t.Errorf("expected backing file of 20000 bytes, got %d", info.Size())
	}
}

func TestMapRejectsOversizeSegname(t *testing.T) {
	store, _ := SetupTempStore(t)
	longName := strings.Repeat("s", 130)
	if _, err := store.Map(longName, 10); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
}

func TestMapRejectsSegmentOwnedByTransaction(t *testing.T) {
	store, _ := SetupTempStore(t)

	buf, err := store.Map("segment1", 100)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	if _, err := store.BeginTrans([][]byte{buf}); err != nil {
		t.Fatalf("BeginTrans failed: %v", err)
	}

	if _, err := store.Map("segment1", 100); !errors.Is(err, ErrSegmentBusy) {
		t.Fatalf("expected ErrSegmentBusy, got %v", err)
	}
}

func TestUnmapFreesSegmentButKeepsBackingFile(t *testing.T) {
	store, dir := SetupTempStore(t)

	buf, err := store.Map("segment1", 100)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	if err := store.Unmap(buf); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}

	if len(store.catalog) != 0 {
		t.Errorf("expected empty catalog after unmap, got %d entries", len(store.catalog))
	}
	if _, err := os.Stat(filepath.Join(dir, "segment1")); err != nil {
		t.Errorf("expected backing file to survive unmap: %v", err)
	}
}

func TestUnmapNoOpWhenSegmentOwnedByTransaction(t *testing.T) {
	store, _ := SetupTempStore(t)

	buf, err := store.Map("segment1", 100)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if _, err := store.BeginTrans([][]byte{buf}); err != nil {
		t.Fatalf("BeginTrans failed: %v", err)
	}

	if err := store.Unmap(buf); !errors.Is(err, ErrSegmentBusy) {
		t.Fatalf("expected ErrSegmentBusy, got %v", err)
	}
	if len(store.catalog) != 1 {
		t.Errorf("expected segment to remain mapped, catalog has %d entries", len(store.catalog))
	}
}

func TestDestroyNoOpWhileMapped(t *testing.T) {
	store, dir := SetupTempStore(t)

	if _, err := store.Map("segment1", 100); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	if err := store.Destroy("segment1"); err != nil {
		t.Fatalf("Destroy returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "segment1")); err != nil {
		t.Errorf("expected backing file to survive destroy-while-mapped: %v", err)
	}
}

func TestDestroyRemovesBackingFileWhenUnmapped(t *testing.T) {
	store, dir := SetupTempStore(t)

	buf, err := store.Map("segment1", 100)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := store.Unmap(buf); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}

	if err := store.Destroy("segment1"); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "segment1")); !os.IsNotExist(err) {
		t.Errorf("expected backing file removed, stat err: %v", err)
	}
}
