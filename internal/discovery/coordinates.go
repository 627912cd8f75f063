package discovery

import (
	"path"
	"strings"

	"github.com/carnegie-technologies/cqlmigrate/internal/script"
)

const cqlExtension = ".cql"

// classify maps a path relative to the migration root (always forward-slash
// separated, per io/fs convention) to a script type and its coordinates,
// purely by path depth - there is deliberately no name-based override: a
// bootstrap-named file two levels deep is a Migration, and an init-named
// file anywhere but depth 0 is ignored.
func classify(relPath, initFilename, bootstrapFilename string) (script.Type, script.Coordinates, bool) {
	if path.Ext(relPath) != cqlExtension {
		return 0, script.Coordinates{}, false
	}

	segments := strings.Split(relPath, "/")
	depth := len(segments) - 1
	basename := segments[len(segments)-1]

	switch depth {
	case 0:
		if basename == initFilename {
			return script.TypeInit, script.Coordinates{}, true
		}
	case 1:
		if basename == bootstrapFilename {
			return script.TypeBootstrap, script.Coordinates{Keyspace: segments[0], File: basename}, true
		}
	case 2:
		return script.TypeMigration, script.Coordinates{
			Keyspace: segments[0],
			Service:  segments[1],
			File:     segments[2],
		}, true
	}

	return 0, script.Coordinates{}, false
}
