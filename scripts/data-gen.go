/*
	Basic script that generates a large manifest of generic instantiations and,
	optionally, hammers a running lookup server with a mix of hits and misses.

	go run ./scripts -manifest gen.yaml -n 5000
	prespec build gen.yaml
	prespec serve --image gen.pspi &
	go run ./scripts -load -port 7373
*/

package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/0xRadioAc7iv/go-prespec/internal"
	"github.com/0xRadioAc7iv/go-prespec/internal/mangle"
	"github.com/0xRadioAc7iv/go-prespec/pkg/builder"
	"github.com/0xRadioAc7iv/go-prespec/prespec"
)

const (
	concurrency = 6

	maxDepth = 3

	lookupsPerCycle = 50
	cyclesPerWorker = 2000

	sleepBetweenCycles = 5 * time.Millisecond

	progressEvery = 500

	seed = 1
)

var (
	leaves   = []string{"Int", "Int8", "Int64", "UInt", "Double", "Bool", "String", "Character"}
	generics = []mangle.Descriptor{
		{Name: "Array", Arity: 1},
		{Name: "Set", Arity: 1},
		{Name: "Optional", Arity: 1},
		{Name: "Dictionary", Arity: 2},
		{Name: "Result", Arity: 2},
	}
)

func main() {
	manifestPath := flag.String("manifest", "", "write a generated manifest to this path")
	entries := flag.Int("n", 1000, "number of manifest entries")
	load := flag.Bool("load", false, "run the lookup load generator")
	host := flag.String("host", internal.DEFAULT_HOST, "lookup server host")
	port := flag.Int("port", internal.DEFAULT_PORT, "lookup server port")
	flag.Parse()

	// Same seed for both modes so the load hits the generated keys.
	keys := makeKeys(rand.New(rand.NewSource(seed)), *entries)

	if *manifestPath != "" {
		if err := writeManifest(*manifestPath, keys); err != nil {
			fmt.Println("manifest error:", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d entries to %s\n", len(keys), *manifestPath)
	}

	if *load {
		start := time.Now()
		fmt.Println("Starting lookup load generator")

		var g errgroup.Group
		for i := 0; i < concurrency; i++ {
			g.Go(func() error {
				return runWorker(i, *host, *port, keys)
			})
		}
		if err := g.Wait(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		fmt.Printf("Load finished in %v\n", time.Since(start))
	}
}

func runWorker(id int, host string, port int, keys []string) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	client, err := prespec.Connect(prespec.WithHost(host), prespec.WithPort(port))
	if err != nil {
		return fmt.Errorf("[worker %d] connect error: %w", id, err)
	}
	defer client.Close()

	hits, misses := 0, 0
	for cycle := 1; cycle <= cyclesPerWorker; cycle++ {
		for i := 0; i < lookupsPerCycle; i++ {
			// Roughly one in four lookups is for a key that was never built.
			key := keys[rng.Intn(len(keys))]
			if rng.Intn(4) == 0 {
				key = randomType(rng, maxDepth).String() + "?"
			}

			_, ok, err := client.Lookup(key)
			if err != nil {
				return fmt.Errorf("[worker %d] lookup error: %w", id, err)
			}
			if ok {
				hits++
			} else {
				misses++
			}
		}

		if cycle%progressEvery == 0 {
			fmt.Printf("[worker %d] completed %d cycles (%d hits, %d misses)\n", id, cycle, hits, misses)
		}

		if sleepBetweenCycles > 0 {
			time.Sleep(sleepBetweenCycles)
		}
	}

	return nil
}

func makeKeys(rng *rand.Rand, n int) []string {
	seen := make(map[string]struct{}, n)
	keys := make([]string, 0, n)

	for attempts := 0; len(keys) < n && attempts < n*20; attempts++ {
		key := randomType(rng, maxDepth).String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	return keys
}

func randomType(rng *rand.Rand, depth int) mangle.Type {
	if depth == 0 || rng.Intn(3) == 0 {
		return mangle.Named(leaves[rng.Intn(len(leaves))])
	}

	desc := generics[rng.Intn(len(generics))]
	args := make([]mangle.Type, desc.Arity)
	for i := range args {
		args[i] = randomType(rng, depth-1)
	}
	return mangle.Generic(desc.Name, args...)
}

func writeManifest(path string, keys []string) error {
	m := builder.Manifest{}
	for i, key := range keys {
		m.Entries = append(m.Entries, builder.ManifestEntry{
			Key:         key,
			MetadataHex: fmt.Sprintf("%08x%08x", i, len(key)),
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&m); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}
