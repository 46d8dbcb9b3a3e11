package mask

import (
	"strconv"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
)

// Parser разбирает выражение маски в AST
type Parser struct {
	lexer     *Lexer
	input     string
	curToken  Token
	peekToken Token
}

// NewParser создает новый парсер
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		input: input,
	}

	// Читаем два токена для инициализации curToken и peekToken
	p.nextToken()
	p.nextToken()

	return p
}

// nextToken продвигает токены
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// errorf создает ошибку разбора с позицией текущего токена
func (p *Parser) errorf(format string, args ...any) error {
	e := generr.MaskEvaluation(format, args...)
	e.Msg = "parse error at pos " + strconv.Itoa(p.curToken.Pos) + " in " + strconv.Quote(p.input) + ": " + e.Msg
	return e
}

// Parse разбирает все выражение целиком
func (p *Parser) Parse() (Expression, error) {
	if p.curToken.Type == TokenEOF {
		return nil, p.errorf("empty expression")
	}

	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	if p.curToken.Type != TokenEOF {
		return nil, p.errorf("unexpected %v %q", p.curToken.Type, p.curToken.Literal)
	}
	return expr, nil
}

// parseExpression парсит выражение с приоритетами
// Приоритет: NOT (3) > AND (2) > OR (1)
func (p *Parser) parseExpression(precedence int) (Expression, error) {
	var left Expression
	var err error

	switch p.curToken.Type {
	case TokenNot:
		p.nextToken()
		expr, err := p.parseExpression(3)
		if err != nil {
			return nil, err
		}
		left = &NotExpression{Expression: expr}
	case TokenLParen:
		p.nextToken()
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if p.curToken.Type != TokenRParen {
			return nil, p.errorf("expected ), got %v", p.curToken.Type)
		}
		p.nextToken()
		left = &ParenExpression{Expression: expr}
	default:
		left, err = p.parseCondition()
		if err != nil {
			return nil, err
		}
	}

	// Инфиксные операторы (and, or)
	for {
		var opPrecedence int
		var operator string

		switch p.curToken.Type {
		case TokenAnd:
			opPrecedence, operator = 2, "and"
		case TokenOr:
			opPrecedence, operator = 1, "or"
		default:
			return left, nil
		}

		if opPrecedence <= precedence {
			return left, nil
		}
		p.nextToken()

		right, err := p.parseExpression(opPrecedence)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: operator, Right: right}
	}
}

// parseCondition парсит сравнение, in или одиночный операнд
func (p *Parser) parseCondition() (Expression, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	switch p.curToken.Type {
	case TokenEq, TokenNotEq, TokenLt, TokenLte, TokenGt, TokenGte:
		operator := p.curToken.Literal
		p.nextToken()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &ComparisonExpression{Left: left, Operator: operator, Right: right}, nil

	case TokenIn:
		p.nextToken()
		return p.parseInExpression(left, false)

	case TokenNot:
		// "x not in [...]"
		if p.peekToken.Type != TokenIn {
			return nil, p.errorf("expected in after not")
		}
		p.nextToken()
		p.nextToken()
		return p.parseInExpression(left, true)
	}

	return &TruthExpression{Operand: left}, nil
}

// parseOperand парсит ссылку на колонку или литерал
func (p *Parser) parseOperand() (Operand, error) {
	tok := p.curToken
	switch tok.Type {
	case TokenIdent:
		p.nextToken()
		return &ColumnRef{Name: tok.Literal, Pos: tok.Pos}, nil
	case TokenString, TokenNumber, TokenTrue, TokenFalse:
		return p.parseLiteral()
	case TokenIllegal:
		return nil, p.errorf("illegal token %q", tok.Literal)
	case TokenEOF:
		return nil, p.errorf("unexpected end of expression")
	default:
		return nil, p.errorf("expected column or literal, got %v", tok.Type)
	}
}

// parseLiteral парсит литерал
func (p *Parser) parseLiteral() (*Literal, error) {
	tok := p.curToken
	var lit *Literal

	switch tok.Type {
	case TokenString:
		lit = &Literal{Value: tok.Literal}
	case TokenNumber:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", tok.Literal)
		}
		lit = &Literal{Value: f}
	case TokenTrue:
		lit = &Literal{Value: true}
	case TokenFalse:
		lit = &Literal{Value: false}
	default:
		return nil, p.errorf("expected literal, got %v", tok.Type)
	}

	p.nextToken()
	return lit, nil
}

// parseInExpression парсит список литералов: [a, b] или (a, b)
func (p *Parser) parseInExpression(operand Operand, not bool) (Expression, error) {
	var closing TokenType
	switch p.curToken.Type {
	case TokenLBracket:
		closing = TokenRBracket
	case TokenLParen:
		closing = TokenRParen
	default:
		return nil, p.errorf("expected [ after in, got %v", p.curToken.Type)
	}
	p.nextToken()

	values := []*Literal{}
	if p.curToken.Type == closing {
		p.nextToken()
		return &InExpression{Operand: operand, Values: values, Not: not}, nil
	}

	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, lit)

		if p.curToken.Type == closing {
			p.nextToken()
			break
		}
		if p.curToken.Type != TokenComma {
			return nil, p.errorf("expected , or %v in list, got %v", closing, p.curToken.Type)
		}
		p.nextToken() // пропускаем запятую
	}

	return &InExpression{Operand: operand, Values: values, Not: not}, nil
}
