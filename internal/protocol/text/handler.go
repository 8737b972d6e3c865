// Package text implements the line-oriented text protocol: the
// original TiMBL server's default wire format, command loop grounded on
// original_source/src/TcpServer.cxx.
package text

import (
	"context"
	"fmt"
	"strings"

	"github.com/LanguageMachines/timblserver/internal/classifier"
	"github.com/LanguageMachines/timblserver/internal/server"
	"github.com/LanguageMachines/timblserver/internal/session"
)

// Handler implements server.ConnectionHandler for the text protocol.
type Handler struct{}

// New returns a text protocol handler.
func New() *Handler { return &Handler{} }

// OnConnection greets the peer, auto-binds a sole "default" base if
// present, then runs the command loop until EXIT or disconnect.
func (h *Handler) OnConnection(ctx context.Context, args *server.ConnArgs) {
	sess := session.New(args.Session, args.Conn, args.Debug, args.Bases, *args.Log)
	defer sess.Close()

	fmt.Fprint(args.W, "Welcome to the Timbl server.\n")
	if base, ok := args.Bases.SingleDefault(); ok {
		sess.Bind(base)
	} else {
		fmt.Fprintf(args.W, "available bases: %s \n", strings.Join(args.Bases.Names(), " "))
	}
	args.W.Flush()

	for {
		line, err := args.R.ReadString('\n')
		if line == "" && err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if !h.handleLine(sess, args, line) {
			return
		}
		args.W.Flush()
		if err != nil {
			return
		}
	}
}

// handleLine processes one command line, returning false when the
// session should close (EXIT). A closed socket is detected by the read
// loop in OnConnection.
func (h *Handler) handleLine(sess *session.Session, args *server.ConnArgs, line string) bool {
	if line == "" {
		fmt.Fprintf(args.W, "ERROR { Illegal instruction:'' in line:%s}\n", line)
		return true
	}
	if strings.HasPrefix(line, "#") {
		fmt.Fprintf(args.W, "SKIP '%s'\n", line)
		return true
	}

	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch matchCommand(command) {
	case cmdBase:
		h.handleBase(sess, args, rest)
	case cmdSet:
		h.handleSet(sess, args, rest)
	case cmdQuery:
		h.handleQuery(sess, args)
	case cmdExit:
		fmt.Fprint(args.W, "OK Closing\n")
		return false
	case cmdClassify:
		h.handleClassify(sess, args, rest)
	default:
		fmt.Fprintf(args.W, "ERROR { Illegal instruction:'%s' in line:%s}\n", command, line)
	}
	return true
}

func (h *Handler) handleBase(sess *session.Session, args *server.ConnArgs, name string) {
	base, ok := args.Bases.Get(name)
	if !ok {
		fmt.Fprintf(args.W, "ERROR { Unknown basename: %s}\n", name)
		return
	}
	sess.Bind(base)
	fmt.Fprintf(args.W, "selected base: '%s'\n", name)
}

func (h *Handler) handleSet(sess *session.Session, args *server.ConnArgs, opts string) {
	exp := sess.Bound()
	if exp == nil {
		fmt.Fprint(args.W, "you haven't selected a base yet!\n")
		return
	}
	if err := exp.SetOptions(opts); err != nil {
		fmt.Fprintf(args.W, "ERROR { set options failed: %s}\n", opts)
		return
	}
	fmt.Fprint(args.W, "OK\n")
}

func (h *Handler) handleQuery(sess *session.Session, args *server.ConnArgs) {
	exp := sess.Bound()
	if exp == nil {
		fmt.Fprint(args.W, "you haven't selected a base yet!\n")
		return
	}
	fmt.Fprint(args.W, "STATUS\n")
	exp.ShowSettingsText(args.W)
	fmt.Fprint(args.W, "ENDSTATUS\n")
}

func (h *Handler) handleClassify(sess *session.Session, args *server.ConnArgs, instance string) {
	exp := sess.Bound()
	if exp == nil {
		fmt.Fprint(args.W, "you haven't selected a base yet!\n")
		return
	}
	cat, distrib, distance, err := exp.Classify(instance)
	if err != nil {
		return
	}

	fmt.Fprintf(args.W, "CATEGORY {%s}", cat)
	if exp.Verbosity(classifier.DISTRIB) {
		fmt.Fprintf(args.W, " DISTRIBUTION %s", distrib)
	}
	if exp.Verbosity(classifier.DISTANCE) {
		fmt.Fprintf(args.W, " DISTANCE {%g}", distance)
	}
	if exp.Verbosity(classifier.MATCH_DEPTH) {
		fmt.Fprintf(args.W, " MATCH_DEPTH {%g}", exp.MatchDepth())
	}
	if exp.Verbosity(classifier.CONFIDENCE) {
		fmt.Fprintf(args.W, " CONFIDENCE {%g}", exp.Confidence())
	}
	if exp.Verbosity(classifier.NEAR_N) {
		fmt.Fprint(args.W, " NEIGHBORS\n")
		exp.ShowBestNeighborsText(args.W)
		fmt.Fprint(args.W, "ENDNEIGHBORS")
	}
	fmt.Fprint(args.W, "\n")
}
