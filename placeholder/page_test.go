package placeholder

import (
	"strings"
	"testing"
)

func TestRenderDefault(t *testing.T) {
	g := New("")
	out, err := g.Render("www.sagebrush.services")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>www.sagebrush.services is on holiday</title>",
		"<strong>www.sagebrush.services</strong>",
		"<h2>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderIsPure(t *testing.T) {
	g := New("back on **Monday**")
	a, err := g.Render("www.sagebrush.services")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := g.Render("www.sagebrush.services")
	if a != b {
		t.Error("Render is not deterministic")
	}
	if !strings.Contains(a, "<strong>Monday</strong>") {
		t.Errorf("custom message not rendered: %s", a)
	}
}

func TestRenderEscapesTitle(t *testing.T) {
	out, err := New("").Render(`<script>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "<title><script>") {
		t.Error("domain not escaped in title")
	}
}
