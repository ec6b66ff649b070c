package app

import (
	"github.com/mk/taskchaingo/internal/registry"
	"github.com/mk/taskchaingo/modules/delay"
	"github.com/mk/taskchaingo/modules/env_vars"
	"github.com/mk/taskchaingo/modules/print"
	"github.com/mk/taskchaingo/modules/relay"
)

// coreModules is the definitive list of runner modules compiled into the
// binary. Tests add scenario-local modules through NewApp's variadic
// parameter instead of editing this list.
var coreModules = []registry.Module{
	&delay.Module{},
	&env_vars.Module{},
	&print.Module{},
	&relay.Module{},
}
