package isa

import "embed"

//go:embed tables/*.toml
var embeddedTables embed.FS

var defaultTables = func() map[Name][]byte {
	files := map[Name]string{
		Stack:       "tables/stack.toml",
		Accumulator: "tables/accumulator.toml",
		RISC:        "tables/risc.toml",
		CISC:        "tables/cisc.toml",
	}
	out := make(map[Name][]byte, len(files))
	for name, path := range files {
		b, err := embeddedTables.ReadFile(path)
		if err != nil {
			panic("isa: missing embedded descriptor " + path + ": " + err.Error())
		}
		out[name] = b
	}
	return out
}()
