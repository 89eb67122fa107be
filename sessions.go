package ike

import (
	"sync"

	"github.com/msgboxio/ikev1/protocol"
)

// Directory holds the admitted isakmp SAs
type Directory struct {
	sas map[SaKey]*SA
	mtx sync.Mutex
}

func NewDirectory() *Directory {
	return &Directory{
		sas: make(map[SaKey]*SA),
	}
}

func (d *Directory) Add(sa *SA) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if _, found := d.sas[sa.Key()]; found {
		return ErrDuplicateSa
	}
	d.sas[sa.Key()] = sa
	return nil
}

func (d *Directory) Remove(key SaKey) (*SA, bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	sa, found := d.sas[key]
	delete(d.sas, key)
	return sa, found
}

func (d *Directory) Get(key SaKey) (*SA, bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	sa, found := d.sas[key]
	return sa, found
}

// GetByInitiator finds an SA from the initiator cookie alone
func (d *Directory) GetByInitiator(cky protocol.Cookie) (*SA, bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	for key, sa := range d.sas {
		if key.I == cky {
			return sa, true
		}
	}
	return nil, false
}

func (d *Directory) Len() int {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return len(d.sas)
}

func (d *Directory) ForEach(action func(*SA)) {
	d.mtx.Lock()
	var temp []*SA
	for _, sa := range d.sas {
		temp = append(temp, sa)
	}
	d.mtx.Unlock()
	for _, sa := range temp {
		action(sa)
	}
}
