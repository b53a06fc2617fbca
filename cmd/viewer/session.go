package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"exchange-rate-viewer/internal/viewer"
)

var errSearchFailed = errors.New("search failed")

// session interprets viewer commands against one controller.
type session struct {
	controller *viewer.Controller
	out        io.Writer
}

func newSession(c *viewer.Controller, out io.Writer) *session {
	return &session{controller: c, out: out}
}

// execute runs one input line and reports whether the user asked to quit.
// Search failures are already shown to the user; only output errors are
// returned.
func (s *session) execute(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	var err error
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true, nil
	case "clear":
		s.controller.ClearLatest()
		s.controller.ClearHistorical()
		_, err = fmt.Fprintln(s.out, "Cleared.")
	case "next":
		err = viewer.RenderHistorical(s.out, s.controller.NextPage())
	case "prev":
		err = viewer.RenderHistorical(s.out, s.controller.PreviousPage())
	case "page":
		n, perr := pageArg(fields[1:])
		if perr != nil {
			_, err = fmt.Fprintln(s.out, "Usage: page <N>")
			break
		}
		err = viewer.RenderHistorical(s.out, s.controller.SetPage(n))
	default:
		err = s.search(ctx, fields[0], fields[1:])
		if isShown(err) {
			err = nil
		}
	}

	return false, err
}

// search runs a latest lookup for a bare code, or a historical search
// when dates follow it. Failed searches return errSearchFailed or the
// validation error after the message has been written.
func (s *session) search(ctx context.Context, code string, args []string) error {
	if len(args) == 0 {
		v := s.controller.SearchLatest(ctx, code)
		if err := viewer.RenderLatest(s.out, v); err != nil {
			return err
		}
		if v.State() == viewer.StateError {
			return errSearchFailed
		}
		return nil
	}

	var start, end string
	start = args[0]
	if len(args) > 1 {
		end = args[1]
	}

	v, err := s.controller.SearchHistorical(ctx, code, start, end)
	if err != nil {
		if _, werr := fmt.Fprintln(s.out, viewer.Message(err)); werr != nil {
			return werr
		}
		return err
	}

	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			if _, werr := fmt.Fprintln(s.out, "Page must be a number."); werr != nil {
				return werr
			}
			return errSearchFailed
		}
		v = s.controller.SetPage(n)
	}

	if err := viewer.RenderHistorical(s.out, v); err != nil {
		return err
	}
	if v.State() == viewer.StateError {
		return errSearchFailed
	}
	return nil
}

// isShown reports whether err is a search failure that was already
// written to the user.
func isShown(err error) bool {
	return errors.Is(err, errSearchFailed) ||
		errors.Is(err, viewer.ErrInvalidCode) ||
		errors.Is(err, viewer.ErrIncompleteSearch) ||
		errors.Is(err, viewer.ErrInvalidDate) ||
		errors.Is(err, viewer.ErrStartAfterEnd)
}

func pageArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one page number")
	}
	return strconv.Atoi(args[0])
}
