package nl2sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vizbot/vizbot/internal/schema"
)

// Keywords whose presence anywhere in a statement makes it unsafe to run.
var forbiddenKeywords = map[string]struct{}{
	"insert": {}, "update": {}, "delete": {}, "drop": {}, "alter": {},
	"truncate": {}, "create": {}, "grant": {}, "revoke": {}, "copy": {},
	"vacuum": {}, "merge": {}, "call": {}, "execute": {}, "prepare": {},
	"deallocate": {}, "lock": {}, "reindex": {}, "cluster": {}, "refresh": {},
	"listen": {}, "notify": {}, "set": {}, "reset": {}, "discard": {},
	"into": {}, "returning": {},
}

// SQL words and type names that are never treated as column references.
var sqlKeywords = map[string]struct{}{
	"select": {}, "from": {}, "where": {}, "group": {}, "by": {}, "order": {},
	"having": {}, "limit": {}, "offset": {}, "join": {}, "inner": {},
	"left": {}, "right": {}, "full": {}, "outer": {}, "cross": {}, "on": {},
	"as": {}, "and": {}, "or": {}, "not": {}, "in": {}, "is": {}, "null": {},
	"like": {}, "ilike": {}, "similar": {}, "between": {}, "case": {},
	"when": {}, "then": {}, "else": {}, "end": {}, "distinct": {},
	"union": {}, "all": {}, "except": {}, "intersect": {}, "exists": {},
	"any": {}, "some": {}, "asc": {}, "desc": {}, "with": {}, "recursive": {},
	"using": {}, "natural": {}, "lateral": {}, "values": {}, "fetch": {},
	"first": {}, "last": {}, "next": {}, "only": {}, "nulls": {}, "rows": {},
	"row": {}, "range": {}, "over": {}, "partition": {}, "filter": {},
	"preceding": {}, "following": {}, "unbounded": {}, "current": {},
	"true": {}, "false": {}, "interval": {}, "extract": {}, "cast": {},
	"epoch": {}, "year": {}, "quarter": {}, "month": {}, "week": {},
	"day": {}, "hour": {}, "minute": {}, "second": {}, "dow": {}, "doy": {},
	"isodow": {}, "at": {}, "zone": {}, "collate": {}, "escape": {},
	// type names, so casts do not read as column references
	"integer": {}, "int": {}, "bigint": {}, "smallint": {}, "numeric": {},
	"decimal": {}, "real": {}, "float": {}, "double": {}, "precision": {},
	"boolean": {}, "text": {}, "varchar": {}, "char": {}, "character": {},
	"varying": {}, "date": {}, "time": {}, "timestamp": {}, "timestamptz": {},
	"json": {}, "jsonb": {}, "uuid": {},
}

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenQuotedIdent
	tokenString
	tokenNumber
	tokenPunct
)

type token struct {
	kind tokenKind
	text string
}

func (t token) isPunct(s string) bool {
	return t.kind == tokenPunct && t.text == s
}

func (t token) isIdent() bool {
	return t.kind == tokenWord || t.kind == tokenQuotedIdent
}

// Validate checks that the statement is a single read-only query whose
// identifiers all exist in the snapshot, enforces the row-limit ceiling, and
// returns the candidate in validated state. The validated flag is one-way:
// there is no path from a validated candidate back to unvalidated.
func Validate(sqlText string, snap *schema.Snapshot, maxRowLimit int) (CandidateSQL, error) {
	trimmed := strings.TrimSpace(sqlText)
	trimmed = strings.TrimSuffix(trimmed, ";")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return CandidateSQL{}, fmt.Errorf("empty statement")
	}

	tokens, err := lexSQL(trimmed)
	if err != nil {
		return CandidateSQL{}, err
	}
	if len(tokens) == 0 {
		return CandidateSQL{}, fmt.Errorf("empty statement")
	}
	for _, tok := range tokens {
		if tok.kind != tokenWord {
			continue
		}
		lower := strings.ToLower(tok.text)
		if _, ok := forbiddenKeywords[lower]; ok {
			return CandidateSQL{}, fmt.Errorf("%w: statement contains %s", ErrUnsafeStatement, strings.ToUpper(lower))
		}
	}

	for _, tok := range tokens {
		if tok.isPunct(";") {
			return CandidateSQL{}, fmt.Errorf("expected a single statement")
		}
	}

	first := strings.ToLower(tokens[0].text)
	if tokens[0].kind != tokenWord || (first != "select" && first != "with") {
		return CandidateSQL{}, fmt.Errorf("statement must start with SELECT or WITH")
	}

	if err := checkIdentifiers(tokens, snap); err != nil {
		return CandidateSQL{}, err
	}

	limited := enforceRowLimit(trimmed, tokens, maxRowLimit)
	return CandidateSQL{sql: limited, validated: true}, nil
}

func checkIdentifiers(tokens []token, snap *schema.Snapshot) error {
	// tables and their aliases introduced by FROM/JOIN, plus names declared
	// with AS (output aliases, CTE names) which are legal references anywhere
	aliases := make(map[string]string)
	declared := make(map[string]struct{})

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.kind != tokenWord {
			continue
		}
		switch strings.ToLower(tok.text) {
		case "as":
			if i+1 < len(tokens) && tokens[i+1].isIdent() {
				declared[strings.ToLower(tokens[i+1].text)] = struct{}{}
			}
			// CTE form: name AS (subquery)
			if i+1 < len(tokens) && tokens[i+1].isPunct("(") && i > 0 && tokens[i-1].isIdent() {
				declared[strings.ToLower(tokens[i-1].text)] = struct{}{}
			}
		case "from", "join":
			j := i + 1
			if j >= len(tokens) || !tokens[j].isIdent() {
				continue // derived table
			}
			if i >= 2 && tokens[i-2].isPunct("(") {
				continue // field argument, as in EXTRACT(hour FROM ts)
			}
			name := tokens[j].text
			lower := strings.ToLower(name)
			if _, isKeyword := sqlKeywords[lower]; isKeyword {
				continue
			}
			if !snap.HasTable(name) {
				if _, isCTE := declared[lower]; !isCTE {
					return &SchemaMismatchError{Identifier: name, Kind: "table"}
				}
			}
			aliases[lower] = lower
			k := j + 1
			if k < len(tokens) && tokens[k].kind == tokenWord && strings.EqualFold(tokens[k].text, "as") {
				k++
			}
			if k < len(tokens) && tokens[k].isIdent() {
				aliasLower := strings.ToLower(tokens[k].text)
				if _, isKeyword := sqlKeywords[aliasLower]; !isKeyword {
					aliases[aliasLower] = lower
				}
			}
			i = j
		}
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !tok.isIdent() {
			continue
		}
		lower := strings.ToLower(tok.text)
		if tok.kind == tokenWord {
			if _, ok := sqlKeywords[lower]; ok {
				continue
			}
		}
		if i+1 < len(tokens) && tokens[i+1].isPunct("(") {
			continue // function call
		}
		if i > 0 && (tokens[i-1].isPunct(".") || tokens[i-1].isPunct(":")) {
			continue // handled with its qualifier, or a cast type
		}
		if i+2 < len(tokens) && tokens[i+1].isPunct(".") {
			table, ok := aliases[lower]
			if !ok && snap.HasTable(lower) {
				table, ok = lower, true
			}
			if !ok {
				if _, isDeclared := declared[lower]; isDeclared {
					i += 2
					continue // derived table or CTE, columns unknown to the snapshot
				}
				return &SchemaMismatchError{Identifier: tok.text, Kind: "table"}
			}
			col := tokens[i+2]
			if col.isPunct("*") || !col.isIdent() {
				i += 2
				continue
			}
			if _, isCTE := declared[table]; !isCTE && !snap.HasColumn(table, col.text) {
				return &SchemaMismatchError{Identifier: tok.text + "." + col.text, Kind: "column"}
			}
			i += 2
			continue
		}
		if _, ok := aliases[lower]; ok {
			continue
		}
		if _, ok := declared[lower]; ok {
			continue
		}
		if snap.HasTable(lower) {
			continue
		}
		if !snap.HasAnyColumn(lower) {
			return &SchemaMismatchError{Identifier: tok.text, Kind: "column"}
		}
	}
	return nil
}

// enforceRowLimit makes the statement respect the configured ceiling: a
// missing LIMIT is appended, a LIMIT above the ceiling is wrapped in a
// limited subquery so the inner statement is left untouched.
func enforceRowLimit(sqlText string, tokens []token, maxRowLimit int) string {
	depth := 0
	for i, tok := range tokens {
		if tok.isPunct("(") {
			depth++
			continue
		}
		if tok.isPunct(")") {
			depth--
			continue
		}
		if depth == 0 && tok.kind == tokenWord && strings.EqualFold(tok.text, "limit") {
			if i+1 < len(tokens) && tokens[i+1].kind == tokenNumber {
				if value, err := strconv.Atoi(tokens[i+1].text); err == nil && value <= maxRowLimit {
					return sqlText
				}
			}
			return fmt.Sprintf("SELECT * FROM (%s) AS limited_rows LIMIT %d", sqlText, maxRowLimit)
		}
	}
	return fmt.Sprintf("%s LIMIT %d", sqlText, maxRowLimit)
}

func lexSQL(input string) ([]token, error) {
	tokens := make([]token, 0, 64)
	runes := []rune(input)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i++
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			end := strings.Index(string(runes[i+2:]), "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment")
			}
			i += end + 4
		case r == '\'':
			start := i
			i++
			for {
				if i >= len(runes) {
					return nil, fmt.Errorf("unterminated string literal")
				}
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			tokens = append(tokens, token{kind: tokenString, text: string(runes[start:i])})
		case r == '"':
			i++
			var sb strings.Builder
			for {
				if i >= len(runes) {
					return nil, fmt.Errorf("unterminated quoted identifier")
				}
				if runes[i] == '"' {
					if i+1 < len(runes) && runes[i+1] == '"' {
						sb.WriteRune('"')
						i += 2
						continue
					}
					i++
					break
				}
				sb.WriteRune(runes[i])
				i++
			}
			tokens = append(tokens, token{kind: tokenQuotedIdent, text: sb.String()})
		case isWordStart(r):
			start := i
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenWord, text: string(runes[start:i])})
		case r >= '0' && r <= '9':
			start := i
			for i < len(runes) && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.' || runes[i] == 'e' || runes[i] == 'E') {
				i++
			}
			tokens = append(tokens, token{kind: tokenNumber, text: string(runes[start:i])})
		default:
			tokens = append(tokens, token{kind: tokenPunct, text: string(r)})
			i++
		}
	}
	return tokens, nil
}

func isWordStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isWordRune(r rune) bool {
	return isWordStart(r) || (r >= '0' && r <= '9') || r == '$'
}
