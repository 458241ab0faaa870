// Copyright 2021 Torben Schinke
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package token

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Kind classifies a PosError into one of the taxonomy members a driver can
// branch on (e.g. to pick an exit code or to decide whether a diagnostic is
// a warning instead of a hard failure).
type Kind string

const (
	FileNotFound         Kind = "FileNotFound"
	ParseError           Kind = "ParseError"
	ModuleNotFound       Kind = "ModuleNotFound"
	ImportCycle          Kind = "ImportCycle"
	DuplicateDecl        Kind = "DuplicateDecl"
	UnknownImport        Kind = "UnknownImport"
	UnknownType          Kind = "UnknownType"
	ArityMismatch        Kind = "ArityMismatch"
	TypeAliasCycle       Kind = "TypeAliasCycle"
	DefaultValueMismatch Kind = "DefaultValueMismatch"
	AnnotationShapeError Kind = "AnnotationShapeError"
	EmitError            Kind = "EmitError"
	IOError              Kind = "IOError"
)

// ErrDetail is one line of an explanation chain: a node plus the message
// that applies to it ("declared here", "used here", ...).
type ErrDetail struct {
	Node    Node
	Message string
}

// NewErrDetail builds a single explanation line.
func NewErrDetail(node Node, msg string) ErrDetail {
	return ErrDetail{
		Node:    node,
		Message: msg,
	}
}

// PosError represents a very specific positional error with a lot of
// explaining noise. Use Explain to render it.
type PosError struct {
	Kind    Kind
	Details []ErrDetail
	Cause   error
	Hint    string
}

// NewPosError creates a new PosError with the given root cause and optional
// details. The Kind defaults to ParseError; use WithKind to set another one.
func NewPosError(node Node, msg string, details ...ErrDetail) *PosError {
	tmp := append([]ErrDetail{}, ErrDetail{
		Node:    node,
		Message: msg,
	})
	tmp = append(tmp, details...)

	return &PosError{
		Kind:    ParseError,
		Details: tmp,
	}
}

// WithKind sets the taxonomy kind and returns p for chaining.
func (p *PosError) WithKind(kind Kind) *PosError {
	p.Kind = kind
	return p
}

// SetCause attaches a wrapped root cause and returns p for chaining.
func (p *PosError) SetCause(err error) *PosError {
	p.Cause = err
	return p
}

// SetHint attaches a one-line remediation hint and returns p for chaining.
func (p *PosError) SetHint(str string) *PosError {
	p.Hint = str
	return p
}

func (p *PosError) Unwrap() error {
	return p.Cause
}

func (p *PosError) firstDetail() ErrDetail {
	if len(p.Details) > 0 {
		return p.Details[0]
	}

	return ErrDetail{}
}

func (p *PosError) Error() string {
	prefix := ""
	if p.Kind != "" {
		prefix = string(p.Kind) + ": "
	}

	if p.Cause == nil {
		return prefix + p.firstDetail().Message
	}

	return prefix + p.firstDetail().Message + ": " + p.Cause.Error()
}

// src tries to load the source code based on the given file name. If it
// fails, the empty string is returned.
func src(fname string) string {
	buf, err := os.ReadFile(fname)
	if err != nil {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}

		buf, err = os.ReadFile(filepath.Join(wd, fname))
		if err != nil {
			return ""
		}
	}

	return string(buf)
}

// docLines returns the source lines belonging to the file of the given node.
func docLines(n Node) []string {
	if n == nil {
		return nil
	}

	source := src(n.Begin().File)
	return strings.Split(source, "\n")
}

// posLine returns the line from lines which fits to the given pos.
func posLine(lines []string, pos Pos) string {
	no := pos.Line - 1

	if no > len(lines) {
		no = len(lines) - 1
	}

	ltext := ""
	if no < len(lines) && no >= 0 {
		ltext = lines[no]
	}

	return ltext
}

// Explain returns a multi-line text suited to be printed into the console:
// a "<file>:<line>:<col>" header whenever the file changes, then for each
// detail a source excerpt with a caret underline and the detail's message,
// and finally the hint if one is set.
func (p PosError) Explain() string {
	indent := 0
	for _, detail := range p.Details {
		l := len(strconv.Itoa(detail.Node.Begin().Line))
		if l > indent {
			indent = l
		}
	}

	sb := &strings.Builder{}

	for i, detail := range p.Details {
		source := docLines(detail.Node)
		line := posLine(source, detail.Node.Begin())

		if i == 0 || (i > 0 && detail.Node.Begin().File != p.Details[i-1].Node.Begin().File) {
			sb.WriteString(detail.Node.Begin().String())
			sb.WriteString("\n")
		}

		sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(indent)+"s |\n", ""))
		sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(indent)+"d |", detail.Node.Begin().Line))
		sb.WriteString(line)
		sb.WriteString("\n")

		sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(indent)+"s |", ""))

		if detail.Node.End().Col-detail.Node.Begin().Col <= 1 {
			sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(detail.Node.Begin().Col-1)+"s", ""))
			sb.WriteString("^~~~ ")
		} else {
			sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(detail.Node.Begin().Col-1)+"s", ""))
			for i := 0; i < detail.Node.End().Col-detail.Node.Begin().Col; i++ {
				sb.WriteRune('^')
			}
			sb.WriteRune(' ')
		}

		sb.WriteString(detail.Message)
		sb.WriteString("\n")

		if i < len(p.Details)-1 {
			for i := 0; i < indent; i++ {
				sb.WriteByte(' ')
			}
			sb.WriteString("...")
			sb.WriteByte('\n')
		}
	}

	if p.Hint != "" {
		sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(indent)+"s |\n", ""))
		sb.WriteString(fmt.Sprintf("%"+strconv.Itoa(indent)+"s = hint: %s\n", "", p.Hint))
	}

	return sb.String()
}

// Explain takes the given wrapped error chain and explains it, if it can.
// Errors that are not a *PosError just render their plain Error() text.
func Explain(err error) string {
	var posErr *PosError
	if errors.As(err, &posErr) {
		sb := &strings.Builder{}
		sb.WriteString("error: ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
		sb.WriteString(posErr.Explain())

		return sb.String()
	}

	return err.Error()
}

// OneLine renders the compact "<file>:<line>:<col>: <kind>: <message>" form
// spec'd as the user-visible diagnostic, without the source excerpt.
func OneLine(err error) string {
	var posErr *PosError
	if !errors.As(err, &posErr) || len(posErr.Details) == 0 {
		return err.Error()
	}

	first := posErr.firstDetail()

	return fmt.Sprintf("%s: %s: %s", first.Node.Begin().String(), posErr.Kind, first.Message)
}
