package collection

import (
	"context"
	"errors"
	"fmt"

	"unidiary/internal/core"
	"unidiary/internal/gateway"
	"unidiary/internal/log"
)

// Profile is the single-row synchronizer for the principal's profile. A
// principal without a stored row sees the default profile, not an error.
type Profile struct {
	store  *Synchronizer[core.Profile]
	userID string
}

func NewProfile(gw gateway.Gateway, scope Scope, opts ...Option) *Profile {
	userID, _ := scope.Owner()
	opts = append([]Option{WithKeyColumn(gateway.ColumnUserID), WithOwnerColumn(gateway.ColumnUserID)}, opts...)
	return &Profile{
		store:  New[core.Profile](gw, gateway.TableProfiles, scope, opts...),
		userID: userID,
	}
}

// Load fetches the stored profile; absence leaves the default in place.
func (p *Profile) Load(ctx context.Context) error {
	if p.userID == "" {
		return nil
	}
	return p.store.Load(ctx)
}

// Current returns the stored profile or the default one.
func (p *Profile) Current() core.Profile {
	if items := p.store.Items(); len(items) > 0 {
		return items[0]
	}
	return core.DefaultProfile(p.userID)
}

// Save applies patch to the stored profile, creating it on first write.
func (p *Profile) Save(ctx context.Context, patch gateway.Row) (core.Profile, error) {
	if p.userID == "" {
		return core.Profile{}, gateway.Validation("upsert", gateway.TableProfiles, errors.New("no principal to own the profile"))
	}
	updated, err := p.store.Update(ctx, p.userID, patch)
	if err == nil {
		p.replace(updated)
		return updated, nil
	}
	if !errors.Is(err, gateway.ErrNotFound) {
		return core.Profile{}, err
	}

	row := gateway.Row{gateway.ColumnUserID: p.userID}
	for k, v := range patch {
		row[k] = v
	}
	created, err := p.insert(ctx, row)
	if err != nil {
		return core.Profile{}, err
	}
	return created, nil
}

// insert goes through the gateway directly because patches are partial rows
// rather than full records.
func (p *Profile) insert(ctx context.Context, row gateway.Row) (core.Profile, error) {
	s := p.store
	rows, err := s.gw.Insert(ctx, s.table, []gateway.Row{row})
	if err == nil && len(rows) == 0 {
		err = gateway.Transport("insert", s.table, errors.New("no rows returned"))
	}
	var created []core.Profile
	if err == nil {
		created, err = DecodeRows[core.Profile](rows)
	}
	if err != nil {
		err = fmt.Errorf("create profile: %w", err)
		s.recordErr(ctx, log.OpCreate, err)
		return core.Profile{}, err
	}

	p.replace(created[0])
	return created[0], nil
}

// replace makes the stored row the only local item, whether or not a load
// ever brought it in.
func (p *Profile) replace(profile core.Profile) {
	s := p.store
	s.mu.Lock()
	s.items = []core.Profile{profile}
	s.lastErr = nil
	s.mu.Unlock()
}

func (p *Profile) Loading() bool { return p.store.Loading() }

func (p *Profile) Err() error { return p.store.Err() }
