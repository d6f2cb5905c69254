package training

import (
	"context"
	"errors"
)

var ErrSessionNotFound = errors.New("session not found")

var _ Repo = (*FileRepo)(nil)
var _ Repo = (*PostgresRepo)(nil)

// Repo is the session store. List returns the live collection sorted
// descending by fecha, the order all read APIs work with.
type Repo interface {
	List(ctx context.Context) ([]Session, error)
	Get(ctx context.Context, id int) (*Session, error)
	Add(ctx context.Context, session *Session) (*Session, error)
	Update(ctx context.Context, session *Session) (*Session, error)
	Delete(ctx context.Context, id int) error
}

// SearchParams filters sessions; zero values mean "no filter".
type SearchParams struct {
	Tipo       string
	FechaDesde string
	FechaHasta string
	TiempoMin  int
}

func (p SearchParams) matches(s Session) bool {
	if p.Tipo != "" && s.Tipo != p.Tipo {
		return false
	}
	if p.FechaDesde != "" && s.Fecha < p.FechaDesde {
		return false
	}
	if p.FechaHasta != "" && s.Fecha > p.FechaHasta {
		return false
	}
	if p.TiempoMin > 0 && s.Tiempo < p.TiempoMin {
		return false
	}
	return true
}

// FilterSessions applies params over an already loaded list.
func FilterSessions(sessions []Session, params SearchParams) []Session {
	filtered := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if params.matches(s) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
