package plugin

import (
	"github.com/felixgeelhaar/berth/internal/domain/service"
)

// CollectServices adapts the services of every registered service
// provider. A later plugin's service replaces an earlier one of the same
// name.
func CollectServices(reg *Registry) *service.Registry {
	services := service.NewRegistry()
	for _, lp := range reg.All() {
		provider, ok := lp.Plugin.(ServiceProvider)
		if !ok {
			continue
		}
		for _, def := range provider.Services(lp.Config) {
			if def.Name == "" {
				continue
			}
			services.Register(service.Adapt(lp.Name(), def))
		}
	}
	return services
}
