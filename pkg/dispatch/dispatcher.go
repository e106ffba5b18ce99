package dispatch

import (
	"fmt"

	"playerstore/pkg/player"
	"playerstore/pkg/store"
)

// Dispatcher turns batch entries into bound statements for one dialect.
// Templates are rendered once in New; Build only attaches arguments.
type Dispatcher struct {
	insert     string
	update     string
	delete     string
	selectAll  string
	selectByID string
}

// New renders the statement templates for d
func New(d store.Dialect) *Dispatcher {
	p := d.Placeholder
	return &Dispatcher{
		insert: fmt.Sprintf("INSERT INTO %s (id, name, region, server) VALUES (%s, %s, %s, %s)",
			store.Table, p(1), p(2), p(3), p(4)),
		update: fmt.Sprintf("UPDATE %s SET name = %s, region = %s, server = %s WHERE id = %s",
			store.Table, p(1), p(2), p(3), p(4)),
		delete: fmt.Sprintf("DELETE FROM %s WHERE id = %s",
			store.Table, p(1)),
		selectAll: fmt.Sprintf("SELECT id, name, region, server FROM %s ORDER BY id",
			store.Table),
		selectByID: fmt.Sprintf("SELECT id, name, region, server FROM %s WHERE id = %s",
			store.Table, p(1)),
	}
}

// Build returns the write statement for e. An operation tag other than
// ADD, MODIFY or DELETE yields an error wrapping player.ErrUnknownOperation.
func (d *Dispatcher) Build(e player.Entry) (store.Statement, error) {
	switch e.Operation {
	case player.OpAdd:
		return store.Statement{
			SQL:  d.insert,
			Args: []any{e.ID, e.Name, e.Region, e.Server},
		}, nil
	case player.OpModify:
		return store.Statement{
			SQL:  d.update,
			Args: []any{e.Name, e.Region, e.Server, e.ID},
		}, nil
	case player.OpDelete:
		return store.Statement{
			SQL:  d.delete,
			Args: []any{e.ID},
		}, nil
	default:
		return store.Statement{}, fmt.Errorf("%w: %q", player.ErrUnknownOperation, e.Operation)
	}
}

// SelectAll reads every player ordered by id
func (d *Dispatcher) SelectAll() store.Statement {
	return store.Statement{SQL: d.selectAll}
}

// SelectByID reads the player with the given id
func (d *Dispatcher) SelectByID(id int64) store.Statement {
	return store.Statement{SQL: d.selectByID, Args: []any{id}}
}
