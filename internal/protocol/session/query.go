package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Filter is one parenthesised filter expression of a get command.
type Filter string

func IDEquals(id int) Filter {
	return Filter(fmt.Sprintf("id = %d", id))
}

func IDIn(ids ...int) Filter {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return Filter("id = [" + strings.Join(parts, ",") + "]")
}

func TitleEquals(title string) Filter {
	return Filter("title = " + quote(title))
}

// SearchMatches is the fuzzy title/alias search filter.
func SearchMatches(text string) Filter {
	return Filter("search ~ " + quote(text))
}

func And(filters ...Filter) Filter {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		if f = Filter(strings.TrimSpace(string(f))); f != "" {
			parts = append(parts, "("+string(f)+")")
		}
	}
	return Filter(strings.Join(parts, " and "))
}

// Options is the optional trailing JSON object of a get command.
type Options struct {
	Page    int    `json:"page,omitempty"`
	Results int    `json:"results,omitempty"`
	Sort    string `json:"sort,omitempty"`
	Reverse bool   `json:"reverse,omitempty"`
}

// Query is "get <kind> <flags> (<filter>) [options]".
type Query struct {
	Kind    string
	Flags   []string
	Filter  Filter
	Options *Options
}

func Get(kind string, flags ...string) Query {
	return Query{Kind: kind, Flags: flags}
}

func (q Query) Where(f Filter) Query {
	q.Filter = f
	return q
}

func (q Query) Page(page, results int) Query {
	opts := Options{}
	if q.Options != nil {
		opts = *q.Options
	}
	opts.Page = page
	opts.Results = results
	q.Options = &opts
	return q
}

func (q Query) Validate() error {
	if strings.TrimSpace(q.Kind) == "" {
		return fmt.Errorf("session: query kind required")
	}
	if len(q.Flags) == 0 {
		return fmt.Errorf("session: query flags required")
	}
	if strings.TrimSpace(string(q.Filter)) == "" {
		return fmt.Errorf("session: query filter required")
	}
	return nil
}

// Command is the verb part of the frame; Options travel as the payload.
func (q Query) Command() string {
	return fmt.Sprintf("get %s %s (%s)", strings.TrimSpace(q.Kind), strings.Join(q.Flags, ","), strings.TrimSpace(string(q.Filter)))
}

func (q Query) payload() any {
	if q.Options == nil {
		return nil
	}
	return q.Options
}

func (q Query) String() string {
	if q.Options == nil {
		return q.Command()
	}
	opts, _ := json.Marshal(q.Options)
	return q.Command() + " " + string(opts)
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
