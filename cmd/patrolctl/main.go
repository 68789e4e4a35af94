// Patrol daemon control client. Queries mission status and cancels the
// running plan over the daemon's HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/teslashibe/go-patrol/internal/httpc"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "Daemon API address")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	base := "http://" + *addr
	var err error
	switch cmd := flag.Arg(0); cmd {
	case "status":
		err = get(base + "/api/status")
	case "mission":
		err = get(base + "/api/mission")
	case "waypoints":
		err = get(base + "/api/waypoints")
	case "cancel":
		err = post(base + "/api/cancel")
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: patrolctl [-addr host:port] <command>")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  status     mission state, selector and pose at a glance")
	fmt.Fprintln(os.Stderr, "  mission    full mission snapshot with per-action progress")
	fmt.Fprintln(os.Stderr, "  waypoints  the waypoint table the daemon patrols")
	fmt.Fprintln(os.Stderr, "  cancel     cancel the currently executing plan")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func get(url string) error {
	resp, err := httpc.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printJSON(resp.Body, resp.StatusCode)
}

func post(url string) error {
	resp, err := httpc.Post(url, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printJSON(resp.Body, resp.StatusCode)
}

func printJSON(r io.Reader, status int) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("daemon answered %d: %s", status, bytes.TrimSpace(body))
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Println(string(bytes.TrimSpace(body)))
		return nil
	}
	fmt.Println(buf.String())
	return nil
}
