// Package jsonrpc implements the line-delimited JSON protocol: one JSON
// object per request line, one JSON object per response line.
package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/LanguageMachines/timblserver/internal/server"
	"github.com/LanguageMachines/timblserver/internal/session"
)

// Handler implements server.ConnectionHandler for the JSON protocol.
type Handler struct{}

// New returns a JSON protocol handler.
func New() *Handler { return &Handler{} }

type request struct {
	Command string   `json:"command"`
	Param   *string  `json:"param,omitempty"`
	Params  []string `json:"params,omitempty"`
}

type statusResponse struct {
	Status         string   `json:"status"`
	AvailableBases []string `json:"available_bases,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OnConnection greets the peer then runs the JSON command loop until
// "exit" or disconnect.
func (h *Handler) OnConnection(ctx context.Context, args *server.ConnArgs) {
	sess := session.New(args.Session, args.Conn, args.Debug, args.Bases, *args.Log)
	defer sess.Close()

	if base, ok := args.Bases.SingleDefault(); ok {
		sess.Bind(base)
		writeJSON(args, statusResponse{Status: "ok"})
	} else {
		writeJSON(args, statusResponse{Status: "ok", AvailableBases: args.Bases.Names()})
	}
	args.W.Flush()

	for {
		line, err := args.R.ReadString('\n')
		if line == "" && err != nil {
			return
		}

		var req request
		if jsonErr := json.Unmarshal([]byte(line), &req); jsonErr != nil {
			args.Log.Debug().Err(jsonErr).Str("line", line).Msg("dropping unparsable JSON request")
			if err != nil {
				return
			}
			continue
		}

		if !h.handleRequest(sess, args, req) {
			args.W.Flush()
			return
		}
		args.W.Flush()
		if err != nil {
			return
		}
	}
}

// handleRequest processes one decoded request, returning false when the
// session should close (an "exit" command). A closed socket is detected
// by the read loop in OnConnection.
func (h *Handler) handleRequest(sess *session.Session, args *server.ConnArgs, req request) bool {
	switch req.Command {
	case "base":
		h.handleBase(sess, args, req)
	case "set":
		h.handleSet(sess, args, req)
	case "query", "show":
		h.handleShow(sess, args, req)
	case "exit":
		writeJSON(args, statusResponse{Status: "closed"})
		return false
	case "classify":
		h.handleClassify(sess, args, req)
	default:
		writeError(args, fmt.Sprintf("Unknown command: '%s'", req.Command))
	}
	return true
}

func (h *Handler) handleBase(sess *session.Session, args *server.ConnArgs, req request) {
	if req.Param == nil {
		writeError(args, "missing param for base")
		return
	}
	base, ok := args.Bases.Get(*req.Param)
	if !ok {
		writeError(args, fmt.Sprintf("Unknown basename: '%s'", *req.Param))
		return
	}
	sess.Bind(base)
	writeJSON(args, map[string]string{"base": *req.Param})
}

func (h *Handler) handleSet(sess *session.Session, args *server.ConnArgs, req request) {
	exp := sess.Bound()
	if exp == nil {
		writeError(args, "you haven't selected a base yet!")
		return
	}
	if req.Param == nil {
		writeError(args, "missing param for set")
		return
	}
	if err := exp.SetOptions(*req.Param); err != nil {
		writeError(args, fmt.Sprintf("set(%s) failed", *req.Param))
		return
	}
	writeJSON(args, statusResponse{Status: "ok"})
}

func (h *Handler) handleShow(sess *session.Session, args *server.ConnArgs, req request) {
	exp := sess.Bound()
	if exp == nil {
		writeError(args, "you haven't selected a base yet!")
		return
	}
	if req.Param == nil {
		writeError(args, "missing param for query")
		return
	}
	var (
		out []byte
		err error
	)
	switch *req.Param {
	case "settings":
		out, err = exp.SettingsToJSON()
	case "weights":
		out, err = exp.WeightsToJSON()
	default:
		writeError(args, fmt.Sprintf("Unknown query target: '%s'", *req.Param))
		return
	}
	if err != nil {
		writeError(args, err.Error())
		return
	}
	args.W.Write(out)
	args.W.WriteByte('\n')
}

func (h *Handler) handleClassify(sess *session.Session, args *server.ConnArgs, req request) {
	exp := sess.Bound()
	if exp == nil {
		writeError(args, "you haven't selected a base yet!")
		return
	}
	if (req.Param == nil) == (req.Params == nil) {
		writeError(args, "classify requires exactly one of param or params")
		return
	}

	var (
		out []byte
		err error
	)
	if req.Param != nil {
		out, err = exp.ClassifyToJSON(*req.Param)
	} else {
		out, err = exp.ClassifyBatchToJSON(req.Params)
	}
	if err != nil {
		writeError(args, err.Error())
		return
	}
	args.W.Write(out)
	args.W.WriteByte('\n')
}

func writeJSON(args *server.ConnArgs, v any) {
	out, err := json.Marshal(v)
	if err != nil {
		return
	}
	args.W.Write(out)
	args.W.WriteByte('\n')
}

func writeError(args *server.ConnArgs, message string) {
	writeJSON(args, errorResponse{Status: "error", Message: message})
}
