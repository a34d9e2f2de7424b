// Command resolve-demo loads a TOML dependency declaration and a TOML
// component registry, runs the resolve package's graph resolution over
// them, and writes the assembled result to a YAML lock file.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/modgraph/resolve"
	rlog "github.com/modgraph/resolve/log"
	"github.com/modgraph/resolve/lockfile"
	"github.com/modgraph/resolve/manifest"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	out := rlog.New(os.Stdout)

	fs := flag.NewFlagSet("resolve-demo", flag.ContinueOnError)
	declPath := fs.String("declaration", "declaration.toml", "path to the TOML dependency declaration")
	registryPath := fs.String("registry", "registry.toml", "path to the TOML component registry")
	lockPath := fs.String("out", "resolve.lock.yaml", "path to write the YAML lock file")
	trace := fs.Bool("trace", false, "write verbose traversal tracing to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	decl, err := manifest.Load(*declPath)
	if err != nil {
		out.Logln(err)
		return 1
	}
	registry, err := manifest.LoadRegistry(*registryPath)
	if err != nil {
		out.Logln(err)
		return 1
	}

	collector := lockfile.NewCollector()
	params := resolve.SolveParameters{
		RootContext:      decl.RootContext(),
		IdResolver:       manifest.IdResolver{Registry: registry},
		MetadataResolver: manifest.MetadataResolver{Registry: registry},
		ContextResolver:  manifest.ContextResolver{},
		AttributeMatcher: singleConfiguration{},
		Replacements:     decl.Replacements(),
		Visitor:          collector,
	}
	if *trace {
		params.Trace = true
		params.TraceLogger = rlog.New(os.Stderr)
	}

	if err := resolve.Resolve(context.Background(), params); err != nil {
		out.Logln(err)
		return 1
	}

	if err := lockfile.WriteFile(*lockPath, collector.Lockfile()); err != nil {
		out.Logln(err)
		return 1
	}

	out.Logf("resolve-demo: wrote %s\n", *lockPath)
	return 0
}

// singleConfiguration is the demo CLI's AttributeMatcher: every registered
// component has exactly one configuration. Real attribute/variant matching
// is out of this module's scope (spec.md SS1).
type singleConfiguration struct{}

func (singleConfiguration) MatchConfigurations(resolve.ComponentMetadata) ([]resolve.ConfigurationID, error) {
	return []resolve.ConfigurationID{"default"}, nil
}
