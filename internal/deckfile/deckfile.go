// Package deckfile reads and writes YAML deck files used to bulk load
// subjects, subtopics and flashcards.
//
//	subjects:
//	  - name: Biology
//	    subtopics:
//	      - name: Cells
//	        cards:
//	          - front: What is the powerhouse of the cell?
//	            back: The mitochondria
package deckfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDeck wraps every validation failure.
var ErrInvalidDeck = errors.New("invalid deck file")

// Deck is the root of a deck file.
type Deck struct {
	Subjects []Subject `yaml:"subjects"`
}

// Subject groups subtopics.
type Subject struct {
	Name      string     `yaml:"name"`
	Subtopics []Subtopic `yaml:"subtopics"`
}

// Subtopic holds cards in display order.
type Subtopic struct {
	Name  string `yaml:"name"`
	Cards []Card `yaml:"cards"`
}

// Card is one flashcard.
type Card struct {
	Front string `yaml:"front"`
	Back  string `yaml:"back"`
}

// CardCount totals the cards in the deck.
func (d *Deck) CardCount() int {
	n := 0
	for _, s := range d.Subjects {
		for _, st := range s.Subtopics {
			n += len(st.Cards)
		}
	}
	return n
}

// Parse decodes and validates a deck. Unknown keys are rejected.
func Parse(r io.Reader) (*Deck, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Deck
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: file is empty", ErrInvalidDeck)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks names and faces are present and names are unique within
// their parent, ignoring case. All problems are reported together.
func (d *Deck) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(d.Subjects) == 0 {
		add("no subjects")
	}
	subjects := map[string]bool{}
	for i, s := range d.Subjects {
		name := strings.TrimSpace(s.Name)
		where := fmt.Sprintf("subjects[%d]", i)
		if name == "" {
			add("%s: name is required", where)
		} else if subjects[strings.ToLower(name)] {
			add("%s: duplicate subject %q", where, name)
		}
		subjects[strings.ToLower(name)] = true

		subtopics := map[string]bool{}
		for j, st := range s.Subtopics {
			stName := strings.TrimSpace(st.Name)
			stWhere := fmt.Sprintf("%s.subtopics[%d]", where, j)
			if stName == "" {
				add("%s: name is required", stWhere)
			} else if subtopics[strings.ToLower(stName)] {
				add("%s: duplicate subtopic %q", stWhere, stName)
			}
			subtopics[strings.ToLower(stName)] = true

			for k, c := range st.Cards {
				if strings.TrimSpace(c.Front) == "" {
					add("%s.cards[%d]: front is required", stWhere, k)
				}
				if strings.TrimSpace(c.Back) == "" {
					add("%s.cards[%d]: back is required", stWhere, k)
				}
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidDeck, errors.Join(errs...))
}

// Encode writes d as YAML.
func Encode(w io.Writer, d *Deck) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode deck: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode deck: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
