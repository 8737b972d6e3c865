package client

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer lets a test script a server-side conversation over a
// net.Pipe without depending on the real protocol handlers.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func newFakeServer(t *testing.T) (*fakeServer, net.Conn) {
	t.Helper()
	server, clientSide := net.Pipe()
	return &fakeServer{t: t, conn: server, r: bufio.NewReader(server)}, clientSide
}

func (f *fakeServer) send(line string) {
	f.t.Helper()
	_, err := f.conn.Write([]byte(line + "\n"))
	require.NoError(f.t, err)
}

func (f *fakeServer) recvLine() string {
	f.t.Helper()
	line, err := f.r.ReadString('\n')
	require.NoError(f.t, err)
	return strings.TrimRight(line, "\n")
}

func dialClient(t *testing.T, serve func(*fakeServer)) *Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		f := &fakeServer{t: t, conn: conn, r: bufio.NewReader(conn)}
		serve(f)
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	c := New()
	ok, err := c.Connect(host, port)
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConnect_AcceptsGreetingAndAvailableBases(t *testing.T) {
	c := dialClient(t, func(f *fakeServer) {
		f.send("Welcome to the Timbl server.")
		f.send("available bases: news sports")
	})
	assert.True(t, c.bases["news"])
	assert.True(t, c.bases["sports"])
}

func TestConnect_RejectsWrongGreeting(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("not a timbl server\n"))
	}()
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	c := New()
	ok, err := c.Connect(host, port)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetBase_RejectsUnknownName(t *testing.T) {
	c := dialClient(t, func(f *fakeServer) {
		f.send("Welcome to the Timbl server.")
		f.send("available bases: news")
	})
	assert.False(t, c.SetBase("bogus"))
}

func TestSetBase_SelectsKnownName(t *testing.T) {
	c := dialClient(t, func(f *fakeServer) {
		f.send("Welcome to the Timbl server.")
		f.send("available bases: news")
		assert.Equal(t, "base news", f.recvLine())
		f.send("selected base: 'news'")
	})
	assert.True(t, c.SetBase("news"))
	assert.Equal(t, "news", c.Base())
}

func TestClassify_ParsesCategoryDistributionAndDistance(t *testing.T) {
	c := dialClient(t, func(f *fakeServer) {
		f.send("Welcome to the Timbl server.")
		f.send("available bases: news")
		assert.Equal(t, "classify a,b", f.recvLine())
		f.send("CATEGORY {yes} DISTRIBUTION { yes 1 } DISTANCE {0}")
	})
	require.True(t, c.Classify("a,b"))
	assert.Equal(t, "yes", c.Class)
	assert.Equal(t, "{ yes 1 }", c.Distribution)
	assert.Equal(t, "0", c.Distance)
}

func TestClassify_CollectsNeighborsUntilEndMarker(t *testing.T) {
	c := dialClient(t, func(f *fakeServer) {
		f.send("Welcome to the Timbl server.")
		f.send("available bases: news")
		f.recvLine()
		f.send("CATEGORY {yes} NEIGHBORS")
		f.send("1 a,b,yes")
		f.send("ENDNEIGHBORS")
	})
	require.True(t, c.Classify("a,b"))
	assert.Equal(t, []string{"1 a,b,yes"}, c.Neighbors)
}

func TestClassify_FailsOnNonResultResponse(t *testing.T) {
	c := dialClient(t, func(f *fakeServer) {
		f.send("Welcome to the Timbl server.")
		f.send("available bases: news")
		f.recvLine()
		f.send("ERROR { not bound to a base }")
	})
	assert.False(t, c.Classify("a,b"))
}

func TestClassifyFile_WritesReportPerLine(t *testing.T) {
	c := dialClient(t, func(f *fakeServer) {
		f.send("Welcome to the Timbl server.")
		f.send("available bases: news")
		f.recvLine()
		f.send("CATEGORY {yes}")
	})
	var out strings.Builder
	require.True(t, c.ClassifyFile(strings.NewReader("a,b\n"), &out))
	assert.Equal(t, "a,b --> CATEGORY {yes}\n", out.String())
}

func TestRunScript_EchoesOKAndErrorResponses(t *testing.T) {
	c := dialClient(t, func(f *fakeServer) {
		f.send("Welcome to the Timbl server.")
		f.send("available bases: news")
		assert.Equal(t, "SET +db", f.recvLine())
		f.send("OK")
	})
	var out strings.Builder
	require.True(t, c.RunScript(strings.NewReader("SET +db\n"), &out))
	assert.Equal(t, "OK\n", out.String())
}
