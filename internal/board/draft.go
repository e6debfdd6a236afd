package board

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyName       = errors.New("board: enter the name first")
	ErrEmptyTitle      = errors.New("board: title is required")
	ErrEmptyComment    = errors.New("board: comment is empty")
	ErrEmptyTaskID     = errors.New("board: task id is required")
	ErrUnknownCategory = errors.New("board: unknown category")
	ErrInvalidDate     = errors.New("board: invalid date")
	ErrDateOrder       = errors.New("board: end date before start date")
)

// TaskDraft is the locally entered form for a new task.
type TaskDraft struct {
	Title      string
	Body       string
	To         string
	Categories []string
	StartDate  string
	EndDate    string
}

// TaskEdit is the locally entered form for an edit.
type TaskEdit struct {
	Title      string
	Body       string
	To         string
	Categories []string
}

// NormalizeName trims a display name and rejects blanks.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

// Validate checks required fields, categories and dates.
func (d TaskDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrEmptyTitle
	}
	if _, err := parseCategories(d.Categories); err != nil {
		return err
	}
	start, err := ParseDate(d.StartDate)
	if err != nil {
		return fmt.Errorf("%w: start %q", ErrInvalidDate, d.StartDate)
	}
	end, err := ParseDate(d.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end %q", ErrInvalidDate, d.EndDate)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return ErrDateOrder
	}
	return nil
}

// Task builds the task this draft describes.
func (d TaskDraft) Task(id, author string) (Task, error) {
	if err := d.Validate(); err != nil {
		return Task{}, err
	}
	cats, _ := parseCategories(d.Categories)
	to := SplitAddressees(d.To)
	return Task{
		ID:         id,
		Title:      strings.TrimSpace(d.Title),
		Body:       d.Body,
		Author:     author,
		To:         to,
		Mentions:   ParseMentions(to),
		Categories: cats,
		StartDate:  strings.TrimSpace(d.StartDate),
		EndDate:    strings.TrimSpace(d.EndDate),
	}, nil
}

// Patch builds the overwrite this edit describes.
func (e TaskEdit) Patch() (TaskPatch, error) {
	if strings.TrimSpace(e.Title) == "" {
		return TaskPatch{}, ErrEmptyTitle
	}
	cats, err := parseCategories(e.Categories)
	if err != nil {
		return TaskPatch{}, err
	}
	return TaskPatch{
		Title:      strings.TrimSpace(e.Title),
		Body:       e.Body,
		To:         SplitAddressees(e.To),
		Categories: cats,
	}, nil
}

func parseCategories(raw []string) ([]Category, error) {
	out := make([]Category, 0, len(raw))
	for _, r := range raw {
		c, ok := ParseCategory(strings.TrimSpace(r))
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, r)
		}
		out = append(out, c)
	}
	return out, nil
}
