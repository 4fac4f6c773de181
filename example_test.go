package stratum_test

import (
	"fmt"

	"github.com/strataconf/stratum"
	"github.com/strataconf/stratum/pkg/adapters/memsource"
	"github.com/strataconf/stratum/pkg/config"
)

// Example resolves a single node from an in-memory document set.
func Example() {
	src := memsource.New()
	_ = src.AddClass("common", "parameters:\n  domain: example.com")
	_ = src.AddNode("web01", "classes: [common]\nparameters:\n  fqdn: ${_reclass_.name.short}.${domain}")

	svc, err := stratum.New("", stratum.WithSource(src), stratum.WithConfig(config.Default()))
	if err != nil {
		panic(err)
	}

	info, err := svc.NodeInfo("web01")
	if err != nil {
		panic(err)
	}

	fqdn, _ := info.Parameters.Get("fqdn")
	fmt.Println(fqdn.FlatString())
	// Output: web01.example.com
}
