// Package oracletest provides a scripted Oracle for tests.
package oracletest

import (
	"context"
	"errors"
	"sync"

	"plotpact/internal/oracle"
)

var ErrExhausted = errors.New("oracletest: no scripted responses left")

type Reply struct {
	Text string
	Err  error
}

// Stub returns its scripted replies in order and records every request.
// Once the script runs out it returns ErrExhausted, or Fallback when set.
type Stub struct {
	mu       sync.Mutex
	Replies  []Reply
	Fallback *Reply
	requests []oracle.Request
}

func New(replies ...Reply) *Stub {
	return &Stub{Replies: replies}
}

// Always returns a stub that answers every call with text.
func Always(text string) *Stub {
	return &Stub{Fallback: &Reply{Text: text}}
}

// Failing returns a stub whose every call fails with err.
func Failing(err error) *Stub {
	return &Stub{Fallback: &Reply{Err: err}}
}

func (s *Stub) Complete(ctx context.Context, req oracle.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.Replies) > 0 {
		r := s.Replies[0]
		s.Replies = s.Replies[1:]
		return r.Text, r.Err
	}
	if s.Fallback != nil {
		return s.Fallback.Text, s.Fallback.Err
	}
	return "", ErrExhausted
}

func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Stub) Requests() []oracle.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]oracle.Request(nil), s.requests...)
}

func (s *Stub) LastRequest() oracle.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return oracle.Request{}
	}
	return s.requests[len(s.requests)-1]
}
