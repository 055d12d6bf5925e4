package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

type echoAsker struct {
	owners []uint64
	asked  []string
}

func (e *echoAsker) Ask(ctx context.Context, owner uint64, text string) (string, error) {
	_ = ctx
	e.owners = append(e.owners, owner)
	e.asked = append(e.asked, text)
	return "answer: " + text, nil
}

func TestRepl(t *testing.T) {
	in := strings.NewReader("where do I live?\n\n   \nQUIT\nnever asked\n")
	var out bytes.Buffer
	a := &echoAsker{}

	if err := repl(context.Background(), in, &out, a, 7); err != nil {
		t.Fatalf("repl: %v", err)
	}
	if len(a.asked) != 1 || a.asked[0] != "where do I live?" || a.owners[0] != 7 {
		t.Fatalf("unexpected questions %v owners %v", a.asked, a.owners)
	}
	s := out.String()
	if !strings.Contains(s, "answer: where do I live?") {
		t.Fatalf("missing answer in output %q", s)
	}
	if strings.Count(s, "please enter a question") != 2 {
		t.Fatalf("blank lines should re-prompt, got %q", s)
	}
	if !strings.HasSuffix(s, "bye\n") {
		t.Fatalf("expected exit message, got %q", s)
	}
}

func TestRepl_EOF(t *testing.T) {
	var out bytes.Buffer
	if err := repl(context.Background(), strings.NewReader("hi"), &out, &echoAsker{}, 1); err != nil {
		t.Fatalf("repl: %v", err)
	}
}
