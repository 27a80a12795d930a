package main

import (
	"bufio"
	"bytes"
	"net"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"
)

const primaryReport = "# Replication\r\nrole:master\r\nmaster_replid:8371445ee0bbb3e5a3bbd1c2e34a8b7f7d5a3c2b\r\nmaster_repl_offset:0\r\n"

func TestParseReport(t *testing.T) {
	got := ParseReport(primaryReport + "\r\nconnected_slaves:1\r\n")
	want := Report{
		"role":               "master",
		"master_replid":      "8371445ee0bbb3e5a3bbd1c2e34a8b7f7d5a3c2b",
		"master_repl_offset": "0",
		"connected_slaves":   "1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseReport() = %v, want %v", got, want)
	}
}

func TestCompare(t *testing.T) {
	ref := ParseReport(primaryReport + "connected_slaves:1\r\n")
	sut := ParseReport("# Replication\r\nrole:master\r\nmaster_replid:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\r\nmaster_repl_offset:0\r\n")

	tests := []struct {
		name   string
		fields []string
		want   []string
	}{
		{"all fields", nil, []string{"connected_slaves", "master_replid"}},
		{"selected fields", []string{"role", "master_repl_offset"}, nil},
		{"selected difference", []string{"master_replid"}, []string{"master_replid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, d := range Compare(ref, sut, tt.fields) {
				got = append(got, d.Field)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Compare() fields = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompareMissingSide(t *testing.T) {
	diffs := Compare(Report{"role": "master"}, Report{}, nil)
	if len(diffs) != 1 {
		t.Fatalf("Compare() = %v, want one diff", diffs)
	}
	if !diffs[0].RefPresent || diffs[0].SutPresent {
		t.Errorf("presence = %v/%v, want true/false", diffs[0].RefPresent, diffs[0].SutPresent)
	}

	var buf bytes.Buffer
	printDiffs(&buf, "a:1", "b:2", diffs)
	if !strings.Contains(buf.String(), "role: missing in SYSTEM, REFERENCE=master") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

// serveOnce answers the first request on a local listener with raw
func serveOnce(t *testing.T, raw string) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// *2, then $4 INFO and $11 replication
		r := bufio.NewReader(conn)
		for i := 0; i < 5; i++ {
			if _, err := r.ReadString('\n'); err != nil {
				return
			}
		}
		conn.Write([]byte(raw))
	}()

	return l.Addr().String()
}

func TestFetchReport(t *testing.T) {
	addr := serveOnce(t, "$"+strconv.Itoa(len(primaryReport))+"\r\n"+primaryReport+"\r\n")

	report, err := fetchReport(addr, 2*time.Second)
	if err != nil {
		t.Fatalf("fetchReport() error = %v", err)
	}
	if report["role"] != "master" || report["master_repl_offset"] != "0" {
		t.Errorf("fetchReport() = %v", report)
	}
}

func TestFetchReportRejectsNonReports(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"null reply", "$-1\r\n", "no replication section"},
		{"error reply", "-ERR unknown command 'INFO'\r\n", "server replied"},
		{"simple reply", "+OK\r\n", "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fetchReport(serveOnce(t, tt.raw), 2*time.Second)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("fetchReport() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
