package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"futures-term/internal/config"
	"futures-term/internal/core"
)

// prompter reads user input line by line, re-prompting until a validator
// accepts the value. io.EOF propagates so the menu can exit cleanly when
// stdin closes.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) text(prompt string, validate func(string) (string, error)) (string, error) {
	for {
		raw, err := p.readLine(prompt)
		if err != nil {
			return "", err
		}
		value, err := validate(raw)
		if err != nil {
			fmt.Fprintf(p.out, "Error: %v\n", err)
			continue
		}
		return value, nil
	}
}

func (p *prompter) symbol(prompt string) (string, error) {
	return p.text(prompt, func(raw string) (string, error) {
		sym := strings.ToUpper(raw)
		if !config.IsValidSymbol(sym) {
			return "", fmt.Errorf("symbol must be letters and digits, e.g. BTCUSDT")
		}
		return sym, nil
	})
}

func (p *prompter) side(prompt string) (core.Side, error) {
	value, err := p.text(prompt, func(raw string) (string, error) {
		side, ok := core.ParseSide(strings.ToUpper(raw))
		if !ok {
			return "", fmt.Errorf("side must be BUY or SELL")
		}
		return string(side), nil
	})
	if err != nil {
		return "", err
	}
	return core.Side(value), nil
}

func (p *prompter) positiveDecimal(prompt string) (decimal.Decimal, error) {
	for {
		raw, err := p.readLine(prompt)
		if err != nil {
			return decimal.Zero, err
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			fmt.Fprintf(p.out, "Error: invalid number %q\n", raw)
			continue
		}
		if value.Cmp(decimal.Zero) <= 0 {
			fmt.Fprintln(p.out, "Error: value must be a positive number")
			continue
		}
		return value, nil
	}
}

func (p *prompter) menuChoice(prompt string, lo, hi int) (int, error) {
	for {
		raw, err := p.readLine(prompt)
		if err != nil {
			return 0, err
		}
		choice, err := strconv.Atoi(raw)
		if err != nil || choice < lo || choice > hi {
			fmt.Fprintf(p.out, "Error: choice must be between %d and %d\n", lo, hi)
			continue
		}
		return choice, nil
	}
}
