package p11

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/miekg/pkcs11"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/p11conform", "p11")

// Loader returns a Provider for the module name
type Loader func(module string) (Provider, error)

var (
	lockLoaders sync.RWMutex
	loaders     = make(map[string]Loader)
)

// Register provider loader by module name.
// A registered name takes precedence over a shared library path.
func Register(module string, loader Loader) error {
	lockLoaders.Lock()
	defer lockLoaders.Unlock()

	if _, ok := loaders[module]; ok {
		return errors.Errorf("already registered: %s", module)
	}

	loaders[module] = loader

	return nil
}

// Unregister provider loader by module name
func Unregister(module string) (Loader, error) {
	lockLoaders.Lock()
	defer lockLoaders.Unlock()

	if loader, ok := loaders[module]; ok {
		delete(loaders, module)
		return loader, nil
	}

	return nil, errors.Errorf("not registered: %s", module)
}

// Registered returns registered module names
func Registered() []string {
	lockLoaders.RLock()
	defer lockLoaders.RUnlock()

	list := []string{}
	for m := range loaders {
		list = append(list, m)
	}
	sort.Strings(list)
	return list
}

// Load returns a Provider for the module,
// which is either a registered name or a path to a PKCS#11 shared library
func Load(module string) (Provider, error) {
	if module == "" {
		return nil, errors.New("PKCS#11 module is not specified")
	}

	lockLoaders.RLock()
	loader, ok := loaders[module]
	lockLoaders.RUnlock()

	if ok {
		p, err := loader(module)
		if err != nil {
			return nil, errors.WithMessagef(err, "unable to load provider: %s", module)
		}
		return p, nil
	}

	logger.KV(xlog.DEBUG, "status", "loading_module", "module", module)

	ctx := pkcs11.New(module)
	if ctx == nil {
		return nil, errors.Errorf("unable to load PKCS#11 module: %s", module)
	}
	return &moduleProvider{module: ctx}, nil
}
