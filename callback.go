package ike

import (
	"github.com/go-kit/kit/log"
	"github.com/msgboxio/ikev1/platform"
)

// Callback receives the esp SAs negotiated by quick mode
type Callback interface {
	AddSa(*SA, *platform.SaParams) error
	RemoveSa(*SA, *platform.SaParams) error
}

// PlatformCallback installs SAs into the kernel
type PlatformCallback struct {
	Logger log.Logger
}

func (p *PlatformCallback) AddSa(sa *SA, params *platform.SaParams) error {
	return platform.InstallChildSa(params, log.With(p.Logger, "isakmp", sa.Key()))
}

func (p *PlatformCallback) RemoveSa(sa *SA, params *platform.SaParams) error {
	return platform.RemoveChildSa(params, log.With(p.Logger, "isakmp", sa.Key()))
}
