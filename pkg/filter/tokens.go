package filter

type Token int

const (
	illegal Token = iota
	eol
	and
	or
	not
	equal
	gte
	greater
	lte
	less
	notEqual
	like
	notLike
	lbracket
	rbracket
	stringLit
	regexLit
	quantity
	identifier
	boolean
)

var tokenNames = map[Token]string{
	illegal:    "illegal",
	eol:        "end of input",
	and:        "and",
	or:         "or",
	not:        "not",
	equal:      "=",
	gte:        ">=",
	greater:    ">",
	lte:        "<=",
	less:       "<",
	notEqual:   "!=",
	like:       "~",
	notLike:    "!~",
	lbracket:   "(",
	rbracket:   ")",
	stringLit:  "string",
	regexLit:   "regex",
	quantity:   "quantity",
	identifier: "field",
	boolean:    "boolean",
}

func (t Token) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown"
}

var tokenSql = map[Token]string{
	and:      "AND",
	or:       "OR",
	not:      "NOT",
	equal:    "=",
	gte:      ">=",
	greater:  ">",
	lte:      "<=",
	less:     "<",
	notEqual: "!=",
}

func (t Token) Sql() string {
	return tokenSql[t]
}

func (t Token) isComparison() bool {
	switch t {
	case equal, notEqual, greater, gte, less, lte:
		return true
	default:
		return false
	}
}
