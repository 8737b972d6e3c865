package text

import "strings"

type command int

const (
	cmdUnknown command = iota
	cmdBase
	cmdSet
	cmdQuery
	cmdExit
	cmdClassify
)

// matchCommand reproduces original_source/src/TcpServer.cxx's
// compare_nocase_n dispatch: a command token matches if it is a
// case-insensitive prefix of the canonical token, so "CLASS",
// "CLASSIFY", and "CLASSIFYBLAH" all resolve to CLASSIFY. Checked in the
// same precedence order as the original (CLASSIFY, QUERY, BASE, SET,
// EXIT).
func matchCommand(tok string) command {
	upper := strings.ToUpper(tok)
	switch {
	case isPrefixOf(upper, "CLASSIFY"):
		return cmdClassify
	case isPrefixOf(upper, "QUERY"):
		return cmdQuery
	case isPrefixOf(upper, "BASE"):
		return cmdBase
	case isPrefixOf(upper, "SET"):
		return cmdSet
	case isPrefixOf(upper, "EXIT"):
		return cmdExit
	default:
		return cmdUnknown
	}
}

// isPrefixOf mirrors compare_nocase_n: tok and canonical are compared
// over their shared prefix length (the comparison itself is exact;
// matchCommand upper-cases tok first, which makes the match
// case-insensitive), so a token both
// shorter (abbreviation) or longer (trailing garbage) than canonical
// still matches as long as the overlap is identical.
func isPrefixOf(tok, canonical string) bool {
	if tok == "" {
		return false
	}
	n := len(tok)
	if len(canonical) < n {
		n = len(canonical)
	}
	return tok[:n] == canonical[:n]
}
