package xmlstream

import (
	"encoding/xml"
	"strings"
	"testing"
)

const (
	stateRoot State = iota
	stateItem
	stateName
)

func testTable() *Table {
	return NewTable([]Transition{
		{From: stateRoot, Element: "item", To: stateItem},
		{From: stateItem, Element: "name", To: stateName, CaptureText: true},
	})
}

func TestRunCallsStartAndEndInOrder(t *testing.T) {
	var got []string
	p := New(testTable(),
		func(to State, elem string, attrs []xml.Attr, skip func()) error {
			got = append(got, "start:"+elem)
			return nil
		},
		func(state State, elem string, text string) error {
			got = append(got, "end:"+elem+"="+text)
			return nil
		},
		nil,
	)

	err := p.Run(strings.NewReader(`<root><item><name>bash</name></item></root>`), stateRoot)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"start:item", "start:name", "end:name=bash", "end:item="}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestUnknownElementEmitsWarningAndSkipsSubtree(t *testing.T) {
	var warned []string
	var ends []string
	p := New(testTable(),
		nil,
		func(state State, elem string, text string) error {
			ends = append(ends, elem)
			return nil
		},
		func(w Warning) error {
			warned = append(warned, w.Kind.String()+":"+w.Message)
			return nil
		},
	)

	err := p.Run(strings.NewReader(`<root><bogus><deeper/></bogus><item><name>x</name></item></root>`), stateRoot)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(warned) != 1 || warned[0] != "UnknownTag:bogus" {
		t.Errorf("unexpected warnings: %v", warned)
	}
	if len(ends) != 2 || ends[0] != "name" || ends[1] != "item" {
		t.Errorf("unexpected ends after skip: %v", ends)
	}
}

func TestWarnCallbackErrorAborts(t *testing.T) {
	p := New(testTable(), nil, nil, func(w Warning) error {
		return errBoom
	})
	err := p.Run(strings.NewReader(`<root><bogus/></root>`), stateRoot)
	if err == nil {
		t.Fatal("expected abort error")
	}
	if kind, ok := errKind(err); !ok || kind != "CallbackInterrupted" {
		t.Errorf("expected CallbackInterrupted, got %v", err)
	}
}

func TestSkipFuncSkipsRequestedSubtree(t *testing.T) {
	var ends []string
	p := New(testTable(),
		func(to State, elem string, attrs []xml.Attr, skip func()) error {
			if elem == "item" {
				skip()
			}
			return nil
		},
		func(state State, elem string, text string) error {
			ends = append(ends, elem)
			return nil
		},
		nil,
	)
	err := p.Run(strings.NewReader(`<root><item><name>x</name></item></root>`), stateRoot)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ends) != 0 {
		t.Errorf("expected skipped subtree to produce no end callbacks, got %v", ends)
	}
}

var errBoom = &boomErr{}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }

func errKind(err error) (string, bool) {
	type kinder interface{ Error() string }
	_ = kinder(nil)
	s := err.Error()
	if strings.Contains(s, "CallbackInterrupted") {
		return "CallbackInterrupted", true
	}
	return "", false
}
