// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package regnumber allocates sequential registration numbers of the form
// PREFIX/SEQ, optionally marked temporary with a leading "T/".
package regnumber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"codeberg.org/oliverandrich/regdesk/internal/metrics"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
)

// TempToken marks a registration number awaiting approval.
const TempToken = "T/"

// Scope is an independent numbering namespace.
type Scope struct {
	Prefix string
	Width  int
}

var (
	Candidate      = Scope{Prefix: "ASF/CANDIDATE", Width: 5}
	FieldExecutive = Scope{Prefix: "ASF/FE", Width: 6}
)

// Format renders seq under the scope.
func (s Scope) Format(seq int64, temporary bool) string {
	reg := fmt.Sprintf("%s/%0*d", s.Prefix, s.Width, seq)
	if temporary {
		return TempToken + reg
	}
	return reg
}

func (s Scope) String() string {
	return s.Prefix
}

// IsTemporary reports whether reg still carries the temporary token.
func IsTemporary(reg string) bool {
	return strings.HasPrefix(reg, TempToken)
}

// Permanent strips the temporary token, leaving the sequence unchanged.
func Permanent(reg string) string {
	return strings.TrimPrefix(reg, TempToken)
}

// Sequence parses the trailing numeric segment of reg.
func Sequence(reg string) (int64, error) {
	i := strings.LastIndexByte(reg, '/')
	seq, err := strconv.ParseInt(reg[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed registration number %q: %w", reg, err)
	}
	return seq, nil
}

// CounterStore is the persistence the Allocator needs.
type CounterStore interface {
	IncrementCounter(ctx context.Context, scope string) (int64, error)
	InitCounter(ctx context.Context, scope string, value int64) error
	RegNumbersWithPrefix(ctx context.Context, prefixes ...string) ([]string, error)
}

type Allocator struct {
	metrics *metrics.Metrics
}

func NewAllocator(m *metrics.Metrics) *Allocator {
	return &Allocator{metrics: m}
}

// Allocate returns the next number of the scope. The per-scope counter is
// bumped atomically, so two callers never receive the same sequence. A scope
// without a counter is seeded from the highest number already on record.
func (a *Allocator) Allocate(ctx context.Context, store CounterStore, scope Scope, temporary bool) (string, error) {
	seq, err := a.next(ctx, store, scope)
	if err != nil {
		return "", err
	}

	reg := scope.Format(seq, temporary)
	a.metrics.RegNumberAllocated(scope.Prefix)
	slog.Debug("regnumber_allocated", "scope", scope.Prefix, "reg_number", reg)
	return reg, nil
}

func (a *Allocator) next(ctx context.Context, store CounterStore, scope Scope) (int64, error) {
	seq, err := store.IncrementCounter(ctx, scope.Prefix)
	if err == nil {
		return seq, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	highest, err := highestOnRecord(ctx, store, scope)
	if err != nil {
		return 0, err
	}

	seq = highest + 1
	err = store.InitCounter(ctx, scope.Prefix, seq)
	if errors.Is(err, repository.ErrDuplicate) {
		// Seeded concurrently by another caller
		return store.IncrementCounter(ctx, scope.Prefix)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to init counter: %w", err)
	}
	return seq, nil
}

func highestOnRecord(ctx context.Context, store CounterStore, scope Scope) (int64, error) {
	prefix := scope.Prefix + "/"
	numbers, err := store.RegNumbersWithPrefix(ctx, prefix, TempToken+prefix)
	if err != nil {
		return 0, err
	}

	var highest int64
	for _, reg := range numbers {
		seq, err := Sequence(reg)
		if err != nil {
			slog.Warn("regnumber_unparsable", "reg_number", reg)
			continue
		}
		highest = max(highest, seq)
	}
	return highest, nil
}
