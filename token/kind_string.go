// Code generated by "stringer -type=Kind"; adapted by hand because the
// toolchain isn't run as part of this build. DO NOT rename constants above
// without updating this table to match.

package token

import "strconv"

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

var kindNames = [...]string{
	Error:                  "Error",
	None:                   "None",
	EOI:                    "EOI",
	AlphaName:              "AlphaName",
	PunctName:              "PunctName",
	UnknownAlphaName:       "UnknownAlphaName",
	UnknownPunctName:       "UnknownPunctName",
	KnownName:              "KnownName",
	Char:                   "Char",
	Uni:                    "Uni",
	Byte:                   "Byte",
	Integer16:              "Integer16",
	Integer32:              "Integer32",
	Integer64:              "Integer64",
	Integer128:             "Integer128",
	Real32:                 "Real32",
	Real64:                 "Real64",
	Real128:                "Real128",
	Float32:                "Float32",
	Float64:                "Float64",
	Float128:               "Float128",
	RawString:              "RawString",
	LongRawString:          "LongRawString",
	DynString:              "DynString",
	LongDynString:          "LongDynString",
	LeftBrace:              "LeftBrace",
	RightBrace:             "RightBrace",
	LeftParen:              "LeftParen",
	RightParen:             "RightParen",
	LeftBracket:            "LeftBracket",
	RightBracket:           "RightBracket",
	Bar:                    "Bar",
	Equal:                  "Equal",
	EqualWithoutWhitespace: "EqualWithoutWhitespace",
	Backtick:               "Backtick",
	DoubleHash:             "DoubleHash",
	Dot:                    "Dot",
	DotDot:                 "DotDot",
	DotDotDot:              "DotDotDot",
	Colon:                  "Colon",
	Comma:                  "Comma",
	Semicolon:              "Semicolon",
	At:                     "At",
	AtAt:                   "AtAt",
	SuperEq:                "SuperEq",
	SuperNe:                "SuperNe",
	Eq:                     "Eq",
	Ne:                     "Ne",
	Lt:                     "Lt",
	Gt:                     "Gt",
	Le:                     "Le",
	Ge:                     "Ge",
	If:                     "If",
	Unless:                 "Unless",
	Then:                   "Then",
	Else:                   "Else",
	While:                  "While",
	Until:                  "Until",
	Do:                     "Do",
	Return:                 "Return",
	Var:                    "Var",
	Auto:                   "Auto",
	Const:                  "Const",
	Try:                    "Try",
	Catch:                  "Catch",
	Till:                   "Till",
	When:                   "When",
	New:                    "New",
	And:                    "And",
	Or:                     "Or",
	Not:                    "Not",
	Is:                     "Is",
	Typeof:                 "Typeof",
	LoanwordInclude:        "LoanwordInclude",
	LoanwordRegex:          "LoanwordRegex",
	LoanwordXML:            "LoanwordXML",
	LoanwordJSON:           "LoanwordJSON",
	LoanwordBrk:            "LoanwordBrk",
	LoanwordSyntax:         "LoanwordSyntax",
}
