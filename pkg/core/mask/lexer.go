package mask

import (
	"fmt"
	"strings"
)

// TokenType тип токена
type TokenType int

const (
	// Специальные токены
	TokenEOF TokenType = iota
	TokenIllegal

	// Идентификаторы и литералы
	TokenIdent  // имя колонки или `имя с пробелами`
	TokenString // 'строка' или "строка"
	TokenNumber // 123, -1.5

	// Ключевые слова
	TokenAnd
	TokenOr
	TokenNot
	TokenIn
	TokenTrue
	TokenFalse

	// Операторы
	TokenEq       // ==
	TokenNotEq    // !=
	TokenLt       // <
	TokenLte      // <=
	TokenGt       // >
	TokenGte      // >=
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenComma    // ,
)

var tokenNames = map[TokenType]string{
	TokenEOF:      "end of expression",
	TokenIllegal:  "illegal",
	TokenIdent:    "identifier",
	TokenString:   "string",
	TokenNumber:   "number",
	TokenAnd:      "and",
	TokenOr:       "or",
	TokenNot:      "not",
	TokenIn:       "in",
	TokenTrue:     "true",
	TokenFalse:    "false",
	TokenEq:       "==",
	TokenNotEq:    "!=",
	TokenLt:       "<",
	TokenLte:      "<=",
	TokenGt:       ">",
	TokenGte:      ">=",
	TokenLParen:   "(",
	TokenRParen:   ")",
	TokenLBracket: "[",
	TokenRBracket: "]",
	TokenComma:    ",",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token представляет токен
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // позиция в исходной строке
}

// String возвращает строковое представление токена
func (t Token) String() string {
	return fmt.Sprintf("Token{Type:%v, Literal:%q, Pos:%d}", t.Type, t.Literal, t.Pos)
}

// Lexer лексический анализатор выражений маски
type Lexer struct {
	input   string
	pos     int  // текущая позиция
	readPos int  // следующая позиция для чтения
	ch      byte // текущий символ
}

// NewLexer создает новый лексер
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// NextToken возвращает следующий токен
func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespace()
	tok.Pos = l.pos

	if l.atEOF() {
		tok.Type = TokenEOF
		return tok
	}

	switch l.ch {
	case '=':
		// одиночный '=' не входит в грамматику
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type = TokenEq
			tok.Literal = "=="
		} else {
			tok.Type = TokenIllegal
			tok.Literal = "="
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type = TokenNotEq
			tok.Literal = "!="
		} else {
			tok.Type = TokenIllegal
			tok.Literal = "!"
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type = TokenLte
			tok.Literal = "<="
		} else {
			tok.Type = TokenLt
			tok.Literal = "<"
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type = TokenGte
			tok.Literal = ">="
		} else {
			tok.Type = TokenGt
			tok.Literal = ">"
		}
	case '-':
		if isDigit(l.peekChar()) || l.peekChar() == '.' {
			tok.Type = TokenNumber
			tok.Literal = l.readNumber()
			return tok
		}
		tok.Type = TokenIllegal
		tok.Literal = "-"
	case '(':
		tok.Type = TokenLParen
		tok.Literal = "("
	case ')':
		tok.Type = TokenRParen
		tok.Literal = ")"
	case '[':
		tok.Type = TokenLBracket
		tok.Literal = "["
	case ']':
		tok.Type = TokenRBracket
		tok.Literal = "]"
	case ',':
		tok.Type = TokenComma
		tok.Literal = ","
	case '\'', '"':
		lit, ok := l.readString(l.ch)
		if !ok {
			tok.Type = TokenIllegal
			tok.Literal = "unterminated string"
			return tok
		}
		tok.Type = TokenString
		tok.Literal = lit
		return tok // readString уже продвинулся
	case '`':
		lit, ok := l.readString('`')
		if !ok || lit == "" {
			tok.Type = TokenIllegal
			tok.Literal = "bad quoted identifier"
			return tok
		}
		tok.Type = TokenIdent
		tok.Literal = lit
		return tok
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = lookupKeyword(tok.Literal)
			return tok
		} else if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
			tok.Type = TokenNumber
			tok.Literal = l.readNumber()
			return tok
		}
		tok.Type = TokenIllegal
		tok.Literal = string(l.ch)
	}

	l.readChar()
	return tok
}

// readChar читает следующий символ
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// atEOF сообщает о конце ввода. Байт 0x00 внутри строки концом не считается.
func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// peekChar смотрит следующий символ без продвижения
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// readIdentifier читает идентификатор или ключевое слово
func (l *Lexer) readIdentifier() string {
	position := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.pos]
}

// readNumber читает число, включая экспоненту (1e3, 2.5E-2)
func (l *Lexer) readNumber() string {
	position := l.pos
	if l.ch == '-' {
		l.readChar()
	}

	hasDecimal := false
	for isDigit(l.ch) || (l.ch == '.' && !hasDecimal) {
		if l.ch == '.' {
			hasDecimal = true
		}
		l.readChar()
	}
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '-' || l.peekChar() == '+') {
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.pos]
}

// readString читает строку в кавычках, поддерживает \' и \\
func (l *Lexer) readString(quote byte) (string, bool) {
	var b strings.Builder
	l.readChar() // пропускаем открывающую кавычку

	for l.ch != quote {
		if l.atEOF() {
			return "", false
		}
		if l.ch == '\\' && (l.peekChar() == quote || l.peekChar() == '\\') {
			l.readChar()
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // закрывающая кавычка
	return b.String(), true
}

// skipWhitespace пропускает пробелы
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func isLetter(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch >= 0x80
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// lookupKeyword определяет, является ли идентификатор ключевым словом.
// Ключевые слова нечувствительны к регистру: and, AND, And.
func lookupKeyword(ident string) TokenType {
	switch strings.ToLower(ident) {
	case "and":
		return TokenAnd
	case "or":
		return TokenOr
	case "not":
		return TokenNot
	case "in":
		return TokenIn
	case "true":
		return TokenTrue
	case "false":
		return TokenFalse
	}
	return TokenIdent
}
