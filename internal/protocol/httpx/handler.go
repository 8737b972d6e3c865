// Package httpx implements the HTTP/GET protocol: a one-shot,
// non-blocking-with-timeout request that returns a single XML document.
// Deliberately hand-rolled rather than built on net/http -- the raw
// request-line parsing and per-read timeout discipline are a wire-level
// contract the spec pins down, not generic HTTP serving.
package httpx

import (
	"context"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/LanguageMachines/timblserver/internal/classifier"
	"github.com/LanguageMachines/timblserver/internal/server"
	"github.com/LanguageMachines/timblserver/internal/session"
)

const (
	readTimeout  = time.Second
	writeTimeout = 10 * time.Second
)

// Handler implements server.ConnectionHandler for the HTTP/GET protocol.
type Handler struct{}

// New returns an HTTP/GET protocol handler.
func New() *Handler { return &Handler{} }

// OnConnection services exactly one request and closes the connection.
func (h *Handler) OnConnection(ctx context.Context, args *server.ConnArgs) {
	defer args.Conn.Close()

	requestLine, ok := readLineWithTimeout(args, readTimeout)
	if !ok || !strings.Contains(requestLine, "HTTP") {
		return
	}
	for {
		line, ok := readLineWithTimeout(args, readTimeout)
		if !ok || strings.TrimSpace(line) == "" {
			break
		}
	}

	target, ok := extractTarget(requestLine)
	if !ok {
		return
	}
	path, query, _ := strings.Cut(target, "?")
	baseName := lastSegment(path)

	base, ok := args.Bases.Get(baseName)
	if !ok {
		args.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		args.W.WriteString("invalid basename: '" + baseName + "'\n\n")
		args.W.Flush()
		return
	}

	sess := session.New(args.Session, args.Conn, args.Debug, args.Bases, *args.Log)
	sess.Bind(base)
	defer sess.Close()
	exp := sess.Bound()

	doc := &resultDocument{Algorithm: exp.AlgorithmName()}
	applyActions(exp, parseQuery(query), args, doc)

	args.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	out, err := xml.Marshal(doc)
	if err == nil {
		args.W.Write(out)
	}
	args.W.WriteString("\n\n")
	args.W.Flush()
}

func readLineWithTimeout(args *server.ConnArgs, timeout time.Duration) (string, bool) {
	args.Conn.SetReadDeadline(time.Now().Add(timeout))
	line, err := args.R.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return line, true
}

// extractTarget locates "GET", then " HTTP", and returns the substring
// between them with the leading "GET " skipped.
func extractTarget(requestLine string) (string, bool) {
	getIdx := strings.Index(requestLine, "GET")
	if getIdx < 0 {
		return "", false
	}
	rest := requestLine[getIdx+len("GET"):]
	httpIdx := strings.Index(rest, " HTTP")
	if httpIdx < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:httpIdx]), true
}

func lastSegment(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

type queryParam struct {
	key, value string
}

func parseQuery(query string) []queryParam {
	if query == "" {
		return nil
	}
	var params []queryParam
	for _, tok := range strings.Split(query, "&") {
		if tok == "" {
			continue
		}
		key, value, _ := strings.Cut(tok, "=")
		params = append(params, queryParam{key: key, value: value})
	}
	return params
}

func filter(params []queryParam, key string) []string {
	var out []string
	for _, p := range params {
		if p.key == key {
			out = append(out, p.value)
		}
	}
	return out
}

// resultDocument is the <TiMblResult> document root.
type resultDocument struct {
	XMLName         xml.Name                `xml:"TiMblResult"`
	Algorithm       string                  `xml:"algorithm,attr"`
	Settings        *classifier.SettingsXML `xml:"settings,omitempty"`
	Weights         *classifier.WeightsXML  `xml:"weights,omitempty"`
	Classifications []classificationXML     `xml:"classification"`
}

type classificationXML struct {
	XMLName      xml.Name                 `xml:"classification"`
	Input        string                   `xml:"input"`
	Category     string                   `xml:"category"`
	Distribution string                   `xml:"distribution,omitempty"`
	Distance     *float64                 `xml:"distance,omitempty"`
	Confidence   *float64                 `xml:"confidence,omitempty"`
	MatchDepth   *float64                 `xml:"match_depth,omitempty"`
	Neighbors    *classifier.NeighborsXML `xml:"neighbors,omitempty"`
}

// applyActions applies set, show, classify query actions in that fixed
// order (spec.md §4.4 step 7); within one action name, entries are
// applied in arrival order.
func applyActions(exp *classifier.Experiment, params []queryParam, args *server.ConnArgs, doc *resultDocument) {
	for _, opt := range filter(params, "set") {
		spec := opt
		if spec != "" && spec[0] != '-' && spec[0] != '+' {
			spec = "-" + spec
		}
		if err := exp.SetOptions(spec); err != nil {
			args.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			args.W.WriteString(": Don't understand set='" + opt + "'")
			args.W.Flush()
		}
	}

	for _, what := range filter(params, "show") {
		switch what {
		case "settings":
			doc.Settings = exp.SettingsToXML()
		case "weights":
			doc.Weights = exp.WeightsToXML()
		}
	}

	for _, input := range filter(params, "classify") {
		decoded := urlDecode(input)
		if len(decoded) >= 3 {
			first, last := decoded[0], decoded[len(decoded)-1]
			if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
				decoded = decoded[1 : len(decoded)-1]
			}
		}
		cat, distrib, distance, err := exp.Classify(decoded)
		if err != nil {
			continue
		}
		c := classificationXML{Input: decoded, Category: cat}
		if exp.Verbosity(classifier.DISTRIB) {
			c.Distribution = distrib
		}
		if exp.Verbosity(classifier.DISTANCE) {
			d := distance
			c.Distance = &d
		}
		if exp.Verbosity(classifier.CONFIDENCE) {
			cf := exp.Confidence()
			c.Confidence = &cf
		}
		if exp.Verbosity(classifier.MATCH_DEPTH) {
			md := exp.MatchDepth()
			c.MatchDepth = &md
		}
		if exp.Verbosity(classifier.NEAR_N) && len(exp.Neighbors()) > 0 {
			c.Neighbors = exp.NeighborsToXML()
		}
		doc.Classifications = append(doc.Classifications, c)
	}
}

// urlDecode handles the query-string escaping spec.md §4.4 calls for:
// "+" becomes space, "%HH" becomes the decoded byte.
func urlDecode(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '+':
			sb.WriteByte(' ')
		case '%':
			if i+2 < len(s) {
				if b, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					sb.WriteByte(byte(b))
					i += 2
					continue
				}
			}
			sb.WriteByte('%')
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
