// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"fmt"
	"strings"

	"github.com/sassoftware/viya-pdf-jsguard/logger"
)

// DefaultMaxDepth bounds the nesting the Classifier follows.
const DefaultMaxDepth = 256

// actionTriggers are the additional-actions (/AA) entries checked for
// JavaScript: page open/close, annotation mouse and focus events, and so on.
var actionTriggers = []string{"E", "X", "D", "U", "Fo", "Bl", "PO", "PC", "PV", "PI"}

// Classifier decides whether a decoded object carries JavaScript.
//
// A Classifier remembers every indirect object it has fully examined, so a
// single instance should be used for all objects of one document and never
// shared across documents or goroutines.
type Classifier struct {
	maxDepth  int
	visited   map[objptr]bool
	actions   map[objptr]bool
	truncated bool
}

// NewClassifier returns a Classifier that follows at most maxDepth levels of
// nesting. maxDepth <= 0 selects DefaultMaxDepth.
func NewClassifier(maxDepth int) *Classifier {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Classifier{
		maxDepth: maxDepth,
		visited:  make(map[objptr]bool),
		actions:  make(map[objptr]bool),
	}
}

// Truncated reports whether the depth limit cut off any traversal.
func (c *Classifier) Truncated() bool { return c.truncated }

// Classify reports whether v, or anything reachable from it, carries
// JavaScript.
func (c *Classifier) Classify(v Value) bool {
	return c.classify(v, 0)
}

// enter reports whether v should be examined. Indirect objects are examined
// once: an object seen before either is still being examined further up the
// walk or has already been found clean. leave undoes the second case for
// objects whose walk was cut off by the depth limit.
func (c *Classifier) enter(v Value, depth int) bool {
	if depth > c.maxDepth {
		if !c.truncated {
			logger.Debug(fmt.Sprintf("classify: depth limit %d reached", c.maxDepth), true)
		}
		c.truncated = true
		return false
	}
	if v.indirect {
		if c.visited[v.ptr] {
			return false
		}
		c.visited[v.ptr] = true
	}
	return true
}

// leave ends the walk of v started with truncated set to false. An indirect
// object whose walk hit the depth limit is forgotten, so it is examined
// again when reached on a shorter path.
func (c *Classifier) leave(seen map[objptr]bool, v Value, truncated bool) {
	if v.indirect && c.truncated {
		delete(seen, v.ptr)
	}
	c.truncated = c.truncated || truncated
}

func (c *Classifier) classify(v Value, depth int) bool {
	switch v.Kind() {
	case Dict, Stream, Array:
	default:
		return false
	}
	if !c.enter(v, depth) {
		return false
	}
	truncated := c.truncated
	c.truncated = false
	found := false
	if v.Kind() == Array {
		for i := 0; i < v.Len() && !found; i++ {
			found = c.classify(v.Index(i), depth+1)
		}
	} else {
		found = c.classifyDict(v, depth)
	}
	c.leave(c.visited, v, truncated)
	return found
}

func (c *Classifier) classifyDict(v Value, depth int) bool {
	if v.Has("JS") {
		return true
	}
	if v.Has("URI") && c.isJavaScriptURI(v.Key("URI"), depth+1) {
		return true
	}
	for _, k := range []string{"A", "OpenAction"} {
		if v.Has(k) && c.actionContainsJavaScript(v.Key(k), depth+1) {
			return true
		}
	}
	if v.Has("AA") {
		aa := v.Key("AA")
		for _, trig := range actionTriggers {
			if aa.Has(trig) && c.actionContainsJavaScript(aa.Key(trig), depth+1) {
				return true
			}
		}
	}
	if annots := v.Key("Annots"); annots.Kind() == Array {
		for i := 0; i < annots.Len(); i++ {
			if c.annotationContainsJavaScript(annots.Index(i), depth+1) {
				return true
			}
		}
	}
	if v.Has("Contents") && c.classify(v.Key("Contents"), depth+1) {
		return true
	}
	if fm := v.Key("FontMatrix"); fm.Kind() == Array && c.fontMatrixContainsJavaScript(fm, depth+1) {
		return true
	}
	if v.Has("V") && c.valueContainsJavaScript(v.Key("V"), depth+1) {
		return true
	}
	for _, k := range v.Keys() {
		if c.classify(v.Key(k), depth+1) {
			return true
		}
	}
	return false
}

func (c *Classifier) annotationContainsJavaScript(a Value, depth int) bool {
	if a.Kind() != Dict {
		return false
	}
	if a.Has("A") && c.actionContainsJavaScript(a.Key("A"), depth+1) {
		return true
	}
	if a.Has("V") && c.valueContainsJavaScript(a.Key("V"), depth+1) {
		return true
	}
	return a.Has("Contents") && c.classify(a.Key("Contents"), depth+1)
}

// actionContainsJavaScript applies the action rule to a and to every action
// in its /Next chain.
func (c *Classifier) actionContainsJavaScript(a Value, depth int) bool {
	if depth > c.maxDepth {
		c.truncated = true
		return false
	}
	if !a.indirect {
		return c.checkAction(a, depth)
	}
	if c.actions[a.ptr] {
		return false
	}
	c.actions[a.ptr] = true
	truncated := c.truncated
	c.truncated = false
	found := c.checkAction(a, depth)
	c.leave(c.actions, a, truncated)
	return found
}

func (c *Classifier) checkAction(a Value, depth int) bool {
	switch a.Kind() {
	case Array:
		for i := 0; i < a.Len(); i++ {
			if c.actionContainsJavaScript(a.Index(i), depth+1) {
				return true
			}
		}
		return false
	case Dict, Stream:
	default:
		return false
	}
	if a.Has("JS") {
		return true
	}
	if a.Has("URI") && c.isJavaScriptURI(a.Key("URI"), depth+1) {
		return true
	}
	if actionType(a) == "JavaScript" {
		return true
	}
	return a.Has("Next") && c.actionContainsJavaScript(a.Key("Next"), depth+1)
}

// isJavaScriptURI applies the URI rule: a javascript: URI string, a URI
// action whose target is JavaScript, or a JavaScript action.
func (c *Classifier) isJavaScriptURI(u Value, depth int) bool {
	if depth > c.maxDepth {
		c.truncated = true
		return false
	}
	switch u.Kind() {
	case String:
		return hasJavaScriptScheme(u.Text())
	case Dict, Stream:
	default:
		return false
	}
	switch actionType(u) {
	case "JavaScript":
		return true
	case "URI":
		switch nameOrText(u.Key("F")) {
		case "JavaScript", "Data":
			return true
		}
		inner := u.Key("URI")
		switch inner.Kind() {
		case String:
			if hasJavaScriptScheme(inner.Text()) {
				return true
			}
		case Dict, Stream:
			if inner.Has("JS") || actionType(inner) == "JavaScript" {
				return true
			}
		}
		if next := u.Key("Next"); next.Kind() == Dict || next.Kind() == Stream {
			if next.Has("JS") || actionType(next) == "JavaScript" {
				return true
			}
		}
	}
	return false
}

// valueContainsJavaScript applies the value rule used for form field values.
func (c *Classifier) valueContainsJavaScript(v Value, depth int) bool {
	switch v.Kind() {
	case Dict, Stream:
	default:
		return false
	}
	if v.Has("JS") || actionType(v) == "JavaScript" {
		return true
	}
	return v.Has("URI") && c.isJavaScriptURI(v.Key("URI"), depth+1)
}

// fontMatrixContainsJavaScript flags FontMatrix arrays abused to smuggle
// script, as in CVE-2024-4367.
func (c *Classifier) fontMatrixContainsJavaScript(fm Value, depth int) bool {
	for i := 0; i < fm.Len(); i++ {
		e := fm.Index(i)
		if e.Kind() == String {
			s := e.Text()
			if strings.Contains(s, "alert(") || strings.Contains(s, "window.origin") {
				return true
			}
			continue
		}
		if c.valueContainsJavaScript(e, depth+1) {
			return true
		}
	}
	return false
}

// actionType returns the /S entry of an action, accepting a name or a string.
func actionType(a Value) string {
	return nameOrText(a.Key("S"))
}

func nameOrText(v Value) string {
	if v.Kind() == Name {
		return v.Name()
	}
	return v.Text()
}

// hasJavaScriptScheme reports whether s contains a javascript: URI. Case and
// the tab and newline characters browsers strip from schemes are ignored.
func hasJavaScriptScheme(s string) bool {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
	return strings.Contains(strings.ToLower(s), "javascript:")
}
