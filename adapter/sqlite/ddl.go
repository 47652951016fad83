/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/suparena/storekit/entity"
	"github.com/suparena/storekit/errors"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdent validates and quotes a schema identifier. Identifiers come
// from entity mappings rather than user input, but they cannot travel as
// SQL parameters, so they are validated before being spliced into a
// statement.
func quoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", errors.NewValidationError(name, "not a valid sqlite identifier")
	}
	return `"` + name + `"`, nil
}

// schemaFor derives the DDL for one family: a CREATE TABLE IF NOT EXISTS
// with one column per property, and a CREATE INDEX IF NOT EXISTS for
// every indexed property. The identity column is an AUTOINCREMENT
// primary key, which is why this backend requires integer identities.
func schemaFor(meta *entity.PersistentEntity) ([]string, error) {
	if meta.Identity.Kind != entity.KindInt {
		return nil, errors.NewValidationError(meta.Identity.Field, "sqlite identities must be integers")
	}
	table, err := quoteIdent(meta.Family)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(meta.Properties))
	for _, p := range meta.Properties {
		col, err := quoteIdent(p.Name)
		if err != nil {
			return nil, err
		}
		if p.Identity {
			cols = append(cols, col+" INTEGER PRIMARY KEY AUTOINCREMENT")
			continue
		}
		ct, err := columnType(p)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col+" "+ct)
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(cols, ", ")),
	}
	for _, p := range meta.Indexed() {
		col, err := quoteIdent(p.Name)
		if err != nil {
			return nil, err
		}
		idx, err := quoteIdent(meta.Family + "_" + p.Name + "_idx")
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx, table, col))
	}
	return stmts, nil
}

func columnType(p *entity.Property) (string, error) {
	switch p.Kind {
	case entity.KindString, entity.KindTime, entity.KindKeyList:
		return "TEXT", nil
	case entity.KindInt, entity.KindBool:
		return "INTEGER", nil
	case entity.KindFloat:
		return "REAL", nil
	case entity.KindBytes:
		return "BLOB", nil
	default:
		return "", errors.NewValidationError(p.Field, fmt.Sprintf("property kind %s has no sqlite column type", p.Kind))
	}
}
