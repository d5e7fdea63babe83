// Command rvmctl is a tiny manual-exercise CLI over package rvm: map,
// write, and dump a segment from the shell. It is not part of the
// library's tested surface.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/epokhe/rvm"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  rvmctl map <dir> <segname> <size>\n")
	fmt.Fprintf(os.Stderr, "  rvmctl write <dir> <segname> <offset> <bytes>\n")
	fmt.Fprintf(os.Stderr, "  rvmctl dump <dir> <segname> <size>\n")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "map":
		if len(os.Args) != 5 {
			usage()
		}
		cmdMap(os.Args[2], os.Args[3], os.Args[4])
	case "write":
		if len(os.Args) != 6 {
			usage()
		}
		cmdWrite(os.Args[2], os.Args[3], os.Args[4], os.Args[5])
	case "dump":
		if len(os.Args) != 5 {
			usage()
		}
		cmdDump(os.Args[2], os.Args[3], os.Args[4])
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", os.Args[1])
		usage()
	}
}

func cmdMap(dir, segname, sizeArg string) {
	size, err := strconv.Atoi(sizeArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad size %q: %v\n", sizeArg, err)
		os.Exit(1)
	}

	r, err := rvm.Init(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}

	buf, err := r.Map(segname, size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "map: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("mapped %q: %d bytes\n", segname, len(buf))
	if err := r.Unmap(buf); err != nil {
		fmt.Fprintf(os.Stderr, "unmap: %v\n", err)
		os.Exit(1)
	}
}

func cmdWrite(dir, segname, offsetArg, data string) {
	offset, err := strconv.Atoi(offsetArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad offset %q: %v\n", offsetArg, err)
		os.Exit(1)
	}

	r, err := rvm.Init(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}

	buf, err := r.Map(segname, offset+len(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "map: %v\n", err)
		os.Exit(1)
	}

	tid, err := r.BeginTrans([][]byte{buf})
	if err != nil {
		fmt.Fprintf(os.Stderr, "begin_trans: %v\n", err)
		os.Exit(1)
	}

	if err := r.AboutToModify(tid, buf, offset, len(data)); err != nil {
		fmt.Fprintf(os.Stderr, "about_to_modify: %v\n", err)
		os.Exit(1)
	}

	copy(buf[offset:offset+len(data)], data)

	if err := r.CommitTrans(tid); err != nil {
		fmt.Fprintf(os.Stderr, "commit_trans: %v\n", err)
		os.Exit(1)
	}

	if err := r.Unmap(buf); err != nil {
		fmt.Fprintf(os.Stderr, "unmap: %v\n", err)
		os.Exit(1)
	}
}

func cmdDump(dir, segname, sizeArg string) {
	size, err := strconv.Atoi(sizeArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad size %q: %v\n", sizeArg, err)
		os.Exit(1)
	}

	r, err := rvm.Init(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}

	buf, err := r.Map(segname, size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "map: %v\n", err)
		os.Exit(1)
	}

	os.Stdout.Write(buf)
	_ = r.Unmap(buf)
}
