// Package filter parses the query language used to select inspection records
// and compiles it to a SQL WHERE expression for the inspection_results table.
//
// Grammar
//
// --- PARSER RULES ---
//
//	expression  : term ( "or" term )* ;
//	term        : factor ( "and" factor )* ;
//
//	factor      : equality
//	            | "not" factor
//	            | "(" expression ")" ;
//
//	equality    : FIELD ( "=" | "!=" | "<" | "<=" | ">" | ">=" ) value
//	            | FIELD ( "~" | "!~" ) REGEX_LITERAL ;
//
//	value       : STRING | QUANTITY | BOOLEAN ;
//
// --- LEXER RULES ---
//
//	FIELD         : [a-zA-Z_][a-zA-Z0-9_]* ( "." [a-zA-Z_][a-zA-Z0-9_]* )* ;
//	REGEX_LITERAL : '/' ( '\\/' | . )*? '/' ;
//	STRING        : "'" (.*?) "'" | "\"" (.*?) "\"" ;
//	BOOLEAN       : "true" | "false" ;
//	QUANTITY      : [0-9]+(\.[0-9]+)? ( 'KB' | 'MB' | 'GB' | 'KiB' | 'MiB' | 'GiB' )? ;
//
// Fields are resolved against a fixed set of known names (see Fields). Unknown
// fields are rejected at parse time, so the generated SQL only ever references
// real columns.
//
// Examples:
//
//	os.distro = 'rhel' and os.major >= 8
//	outcome != 'inspected' or error ~ /timed out/
//	icon.size > 4KB
//	applications ~ /"name":"postgresql/
package filter
