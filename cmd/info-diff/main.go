// Command info-diff compares the INFO replication report of two RESP
// endpoints, e.g. a reference Redis and a respkv node.
package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/raniellyferreira/respkv"
	"github.com/raniellyferreira/respkv/protocol"
)

// Report holds the key:value fields of an INFO reply
type Report map[string]string

func main() {
	app := &cli.App{
		Name:      "info-diff",
		Usage:     "Compare INFO replication between two endpoints",
		UsageText: "info-diff --ref localhost:6379 --sut localhost:6380 [--fields role,master_repl_offset]",
		Version:   respkv.VersionString(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ref",
				Usage:    "Reference endpoint (host:port)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "sut",
				Usage:    "System under test endpoint (host:port)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "fields",
				Usage: "Only compare these fields",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Dial and read timeout",
				Value: 5 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			timeout := c.Duration("timeout")

			ref, err := fetchReport(c.String("ref"), timeout)
			if err != nil {
				return fmt.Errorf("reference %s: %w", c.String("ref"), err)
			}
			sut, err := fetchReport(c.String("sut"), timeout)
			if err != nil {
				return fmt.Errorf("system %s: %w", c.String("sut"), err)
			}

			diffs := Compare(ref, sut, c.StringSlice("fields"))
			printDiffs(os.Stdout, c.String("ref"), c.String("sut"), diffs)
			if len(diffs) > 0 {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// fetchReport sends INFO replication to addr and parses the reply
func fetchReport(addr string, timeout time.Duration) (Report, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	w := protocol.NewWriter(conn)
	if err := w.WriteCommand("INFO", "replication"); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	reply, err := protocol.NewReader(conn).ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if reply.IsError() {
		return nil, fmt.Errorf("server replied %q", reply.Text())
	}
	if reply.IsNull() {
		return nil, fmt.Errorf("server returned no replication section")
	}
	if reply.Type != protocol.TypeBulkString {
		return nil, fmt.Errorf("unexpected %s reply", reply.Type)
	}

	return ParseReport(reply.Text()), nil
}

// ParseReport extracts key:value lines, skipping section headers and
// blank lines
func ParseReport(s string) Report {
	report := make(Report)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		report[key] = value
	}
	return report
}

// Diff is one field whose value differs between the two reports. A
// missing side has Present false.
type Diff struct {
	Field      string
	Ref, Sut   string
	RefPresent bool
	SutPresent bool
}

// Compare returns the differing fields in name order. With an empty
// fields list every field of either report is compared.
func Compare(ref, sut Report, fields []string) []Diff {
	if len(fields) == 0 {
		seen := make(map[string]bool)
		for k := range ref {
			seen[k] = true
		}
		for k := range sut {
			seen[k] = true
		}
		for k := range seen {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)

	var diffs []Diff
	for _, field := range fields {
		r, rok := ref[field]
		s, sok := sut[field]
		if rok == sok && r == s {
			continue
		}
		diffs = append(diffs, Diff{Field: field, Ref: r, Sut: s, RefPresent: rok, SutPresent: sok})
	}
	return diffs
}

func printDiffs(w io.Writer, refAddr, sutAddr string, diffs []Diff) {
	fmt.Fprintf(w, "Comparing INFO replication:\n")
	fmt.Fprintf(w, "  Reference: %s\n", refAddr)
	fmt.Fprintf(w, "  System:    %s\n\n", sutAddr)

	if len(diffs) == 0 {
		fmt.Fprintln(w, "No differences found")
		return
	}

	for _, d := range diffs {
		switch {
		case !d.RefPresent:
			fmt.Fprintf(w, "  %s: missing in REFERENCE, SYSTEM=%s\n", d.Field, d.Sut)
		case !d.SutPresent:
			fmt.Fprintf(w, "  %s: missing in SYSTEM, REFERENCE=%s\n", d.Field, d.Ref)
		default:
			fmt.Fprintf(w, "  %s: REF=%s, SUT=%s\n", d.Field, d.Ref, d.Sut)
		}
	}
	fmt.Fprintf(w, "\n%d difference(s) found\n", len(diffs))
}
