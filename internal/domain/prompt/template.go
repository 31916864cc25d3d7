// Package prompt implements validated prompt templates with named
// {placeholder} slots. Substitution is a pure function over a map of
// named fields; required fields are checked before rendering.
package prompt

import (
	"fmt"
	"strings"
)

// Template is an immutable prompt template with named placeholders.
type Template struct {
	text     string
	required []string
}

// New validates and creates a Template. Every required placeholder must
// appear in the text as {name}.
func New(text string, required ...string) (Template, error) {
	if strings.TrimSpace(text) == "" {
		return Template{}, fmt.Errorf("template text is required")
	}
	for _, name := range required {
		if !strings.Contains(text, slot(name)) {
			return Template{}, fmt.Errorf("template is missing required placeholder %s", slot(name))
		}
	}
	return Template{text: text, required: append([]string(nil), required...)}, nil
}

// MustNew creates a Template or panics. For package-level defaults.
func MustNew(text string, required ...string) Template {
	t, err := New(text, required...)
	if err != nil {
		panic(err)
	}
	return t
}

// Text returns the raw template text.
func (t Template) Text() string { return t.text }

// Render substitutes {name} slots with the given field values.
// All required fields must be present in vars.
func (t Template) Render(vars map[string]string) (string, error) {
	for _, name := range t.required {
		if _, ok := vars[name]; !ok {
			return "", fmt.Errorf("missing required template field %q", name)
		}
	}
	out := t.text
	for name, val := range vars {
		out = strings.ReplaceAll(out, slot(name), val)
	}
	return out, nil
}

func slot(name string) string { return "{" + name + "}" }

// DefaultExpandText asks the generator for alternative phrasings of a
// question, one per line, with no preamble that would break line parsing.
const DefaultExpandText = `You are an AI language model assistant. Your task is to generate {num_queries} different versions of the given user question to retrieve relevant documents from a vector database. By generating multiple perspectives on the user question, your goal is to help the user overcome some of the limitations of distance-based similarity search.

Provide these alternative questions separated by newlines. Output only the questions, nothing else.

Original question: {question}`

// DefaultAnswerText instructs the generator to answer strictly from the
// retrieved context and to admit when the context is insufficient. The
// insufficiency policy lives in this template, not in composer logic.
const DefaultAnswerText = `Answer the question based only on the following context. If the context does not contain enough information to answer the question, reply that you do not have enough information to answer.

Context:
{context}

Question: {question}`

// DefaultExpandTemplate returns the default query-expansion template.
func DefaultExpandTemplate() Template {
	return MustNew(DefaultExpandText, "question", "num_queries")
}

// DefaultAnswerTemplate returns the default answer-composition template.
func DefaultAnswerTemplate() Template {
	return MustNew(DefaultAnswerText, "question", "context")
}
