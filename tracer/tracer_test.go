// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package tracer

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogAndFlush(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)

	Log("first")
	Log("second")
	assert.Equal(t, []string{"first", "second"}, Messages())

	var buf bytes.Buffer
	Flush(&buf)
	assert.Equal(t, "first\nsecond\n", buf.String())
	assert.Empty(t, Messages())
}

func TestLogDisabled(t *testing.T) {
	SetEnabled(false)
	Log("dropped")
	assert.Empty(t, Messages())
}

func TestLogConcurrent(t *testing.T) {
	SetEnabled(true)
	defer func() {
		SetEnabled(false)
		Flush(&bytes.Buffer{})
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Log("msg")
			}
		}()
	}
	wg.Wait()
	assert.Len(t, Messages(), 800)
}
