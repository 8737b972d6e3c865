// Package client implements a thin TCP client for the Timbl server's text
// protocol: connect, greet, select a base, then classify lines one at a
// time, from a file, or by replaying a raw command script.
package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

const greeting = "Welcome to the Timbl server."

type code int

const (
	codeUnknown code = iota
	codeResult
	codeErr
	codeOK
	codeEcho
	codeSkip
	codeNeighbors
	codeEndNeighbors
	codeStatus
	codeEndStatus
)

func toCode(command string) code {
	switch strings.ToUpper(command) {
	case "CATEGORY":
		return codeResult
	case "ERROR":
		return codeErr
	case "OK":
		return codeOK
	case "AVAILABLE", "SELECTED":
		return codeEcho
	case "SKIP":
		return codeSkip
	case "NEIGHBORS":
		return codeNeighbors
	case "ENDNEIGHBORS":
		return codeEndNeighbors
	case "STATUS":
		return codeStatus
	case "ENDSTATUS":
		return codeEndStatus
	default:
		return codeUnknown
	}
}

// splitFirst splits line into its first whitespace-delimited token and the
// (trimmed) remainder.
func splitFirst(line string) (first, rest string) {
	trimmed := strings.TrimLeft(line, " \t")
	idx := strings.IndexAny(trimmed, " \t")
	if idx < 0 {
		return strings.TrimRight(trimmed, "\r\n"), ""
	}
	return trimmed[:idx], strings.TrimSpace(trimmed[idx:])
}

func extractCode(line string) (code, string) {
	first, rest := splitFirst(line)
	return toCode(first), rest
}

// Client drives one text-protocol session against a Timbl server.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer

	serverName string
	serverPort int
	bases      map[string]bool
	base       string

	Class        string
	Distribution string
	Distance     string
	Neighbors    []string
}

// New returns an unconnected Client.
func New() *Client {
	return &Client{bases: make(map[string]bool)}
}

// Base returns the currently selected base, or "" if none.
func (c *Client) Base() string { return c.base }

// Connect dials node:port, reads the greeting, and -- if the server
// follows up within a second with an "available bases:" line -- records
// the bases it offers.
func (c *Client) Connect(node, port string) (bool, error) {
	conn, err := net.Dial("tcp", net.JoinHostPort(node, port))
	if err != nil {
		return false, fmt.Errorf("connect %s:%s: %w", node, port, err)
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	c.w = bufio.NewWriter(conn)
	c.serverName = node
	c.serverPort = parsePort(port)

	line, err := c.r.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading greeting: %w", err)
	}
	if strings.TrimRight(line, "\r\n") != greeting {
		return false, nil
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	next, err := c.r.ReadString('\n')
	conn.SetReadDeadline(time.Time{})
	if err != nil {
		return true, nil
	}
	c.extractBases(next)
	return true, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func parsePort(port string) int {
	n := 0
	for _, r := range port {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// extractBases parses a "available bases: a b c" line into the known base
// set. Returns false (and logs nothing, per caller's discretion) when the
// line doesn't carry that prefix.
func (c *Client) extractBases(line string) bool {
	const want = "available bases:"
	trimmed := strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(trimmed, want) {
		return false
	}
	for _, name := range strings.Fields(trimmed[len(want):]) {
		c.bases[name] = true
	}
	return true
}

// SetBase selects base for this session. It refuses names the server
// never advertised.
func (c *Client) SetBase(base string) bool {
	if !c.bases[base] {
		return false
	}
	if c.conn == nil {
		return false
	}
	if _, err := c.w.WriteString("base " + base + "\n"); err != nil {
		return false
	}
	if err := c.w.Flush(); err != nil {
		return false
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		return false
	}
	if strings.Contains(line, "selected base") && strings.Contains(line, base) {
		c.base = base
		return true
	}
	return false
}

// Classify asks the server to classify line, populating Class,
// Distribution, Distance and Neighbors with the result.
func (c *Client) Classify(line string) bool {
	c.Class = ""
	c.Distribution = ""
	c.Distance = ""
	c.Neighbors = nil
	if c.conn == nil {
		return false
	}
	if _, err := c.w.WriteString("classify " + line + "\n"); err != nil {
		return false
	}
	if err := c.w.Flush(); err != nil {
		return false
	}
	for {
		response, err := c.r.ReadString('\n')
		if err != nil {
			return false
		}
		if strings.TrimSpace(response) == "" {
			continue
		}
		code, rest := extractCode(response)
		if code == codeResult {
			return c.extractResult(rest)
		}
		return false
	}
}

func (c *Client) extractResult(rest string) bool {
	open := strings.Index(rest, "{")
	if open < 0 {
		return false
	}
	close := strings.Index(rest[open:], "}")
	if close < 0 {
		return false
	}
	close += open
	cls := rest[open+1 : close]

	var db string
	if idx := strings.Index(rest, "DISTRIBUTION"); idx >= 0 {
		o := strings.Index(rest[idx+len("DISTRIBUTION"):], "{")
		if o < 0 {
			return false
		}
		o += idx + len("DISTRIBUTION")
		cl := strings.Index(rest[o:], "}")
		if cl < 0 {
			return false
		}
		cl += o
		db = rest[o : cl+1]
	}

	var dist string
	if idx := strings.Index(rest, "DISTANCE"); idx >= 0 {
		o := strings.Index(rest[idx+len("DISTANCE"):], "{")
		if o < 0 {
			return false
		}
		o += idx + len("DISTANCE")
		cl := strings.Index(rest[o:], "}")
		if cl < 0 {
			return false
		}
		cl += o
		dist = rest[o+1 : cl]
	}

	if strings.Contains(rest, "NEIGHBORS") {
		for {
			answer, err := c.r.ReadString('\n')
			if err != nil {
				break
			}
			code, _ := extractCode(answer)
			if code == codeEndNeighbors {
				break
			}
			c.Neighbors = append(c.Neighbors, strings.TrimRight(answer, "\r\n"))
		}
	}

	c.Class = cls
	c.Distribution = db
	c.Distance = dist
	return true
}

// ClassifyFile classifies every line read from in, writing one
// "<line> --> CATEGORY {...}" report line per input line to out.
func (c *Client) ClassifyFile(in io.Reader, out io.Writer) bool {
	if c.conn == nil {
		return false
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if c.Classify(line) {
			fmt.Fprintf(out, "%s --> CATEGORY {%s}", line, c.Class)
			if c.Distribution != "" {
				fmt.Fprintf(out, " DISTRIBUTION %s", c.Distribution)
			}
			if c.Distance != "" {
				fmt.Fprintf(out, " DISTANCE {%s}", c.Distance)
			}
			if len(c.Neighbors) > 0 {
				fmt.Fprintln(out, " NEIGHBORS ")
				for _, n := range c.Neighbors {
					fmt.Fprintln(out, n)
				}
				fmt.Fprint(out, "ENDNEIGHBORS ")
			}
			fmt.Fprintln(out)
		} else {
			fmt.Fprintf(out, "%s ==> ERROR\n", line)
		}
	}
	return true
}

// RunScript replays each line read from in as a raw server command,
// echoing the server's response(s) to out.
func (c *Client) RunScript(in io.Reader, out io.Writer) bool {
	if c.conn == nil {
		fmt.Fprintln(out, "Invalid Client!")
		return false
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		request := scanner.Text()
		if _, err := c.w.WriteString(request + "\n"); err != nil {
			fmt.Fprintln(out, "Client write failed")
			return false
		}
		if err := c.w.Flush(); err != nil {
			fmt.Fprintln(out, "Client write failed")
			return false
		}
		c.echoResponses(out)
	}
	return true
}

// echoResponses reads and echoes the response(s) to a single script line,
// following the same multi-line continuations (NEIGHBORS/STATUS blocks)
// the interactive protocol uses.
func (c *Client) echoResponses(out io.Writer) {
	for {
		response, err := c.r.ReadString('\n')
		if err != nil {
			return
		}
		if strings.TrimSpace(response) == "" {
			continue
		}
		trimmed := strings.TrimRight(response, "\r\n")
		code, _ := extractCode(response)
		switch code {
		case codeOK:
			fmt.Fprintln(out, "OK")
		case codeEcho, codeErr:
			fmt.Fprintln(out, trimmed)
		case codeSkip:
			_, rest := extractCode(response)
			fmt.Fprintln(out, "Skipped "+rest)
		case codeResult:
			alsoNeighbors := strings.Contains(response, "NEIGHBORS")
			fmt.Fprintln(out, trimmed)
			if alsoNeighbors {
				c.echoUntil(out, codeEndNeighbors)
			}
		case codeStatus:
			fmt.Fprintln(out, trimmed)
			c.echoUntil(out, codeEndStatus)
		default:
			fmt.Fprintln(out, "Client is confused?? "+trimmed)
			fmt.Fprintf(out, "Code was '%d'\n", code)
		}
		return
	}
}

// echoUntil echoes lines until one decodes as stop, inclusive.
func (c *Client) echoUntil(out io.Writer, stop code) {
	for {
		response, err := c.r.ReadString('\n')
		if err != nil {
			return
		}
		fmt.Fprintln(out, strings.TrimRight(response, "\r\n"))
		if code, _ := extractCode(response); code == stop {
			return
		}
	}
}
