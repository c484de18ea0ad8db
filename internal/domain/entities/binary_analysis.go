package entities

// BinaryInfo describes the executable format of an installed binary
type BinaryInfo struct {
	Format     string // "elf" or "macho"
	Arch       string // GOARCH naming, e.g. amd64
	Executable bool   // any execute bit set
	Size       int64
}

// Matches reports whether the binary was built for the given target
func (b *BinaryInfo) Matches(t BuildTarget) bool {
	wantFormat := "elf"
	if t.GOOS() == "darwin" {
		wantFormat = "macho"
	}
	return b.Format == wantFormat && b.Arch == t.GOARCH()
}
