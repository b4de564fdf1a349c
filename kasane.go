// Package kasane resolves configuration values from an ordered stack of sources.
//
// The name comes from 重ね (kasane), "layering": values are looked up through
// layers of sources, and the first layer that defines a key wins.
//
// A typical stack for a mobile build reads a developer's untracked
// local.properties first, then the process environment, and finally falls
// back to a literal default:
//
//	sources := []source.Source{
//	    fs.New("android/local.properties"),
//	    source.Alias(env.New("env"), map[string]string{"flutter.mapsApiKey": "MAPS_API_KEY"}),
//	}
//	key, err := kasane.Resolve(ctx, "flutter.mapsApiKey", sources, "YOUR_API_KEY_HERE")
//
// Key features:
//   - Strict priority order with short-circuit on the first defined value
//   - Unreadable sources degrade to "absent" instead of failing resolution
//   - Origin tracking: which source supplied each value
//   - Masked rendering of resolved secrets for logs
//   - Placeholder maps for build manifests, built fresh per invocation
package kasane
