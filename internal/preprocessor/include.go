package preprocessor

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// resolveInclude maps an #include target to a path. A target starting with
// '<' is looked up in LibDir with its first and last character dropped, so
// "<name>" names LibDir/name. Anything else is used as given.
func (p *Preprocessor) resolveInclude(target string) (string, error) {
	if strings.HasPrefix(target, "<") {
		name := ""
		if len(target) > 1 {
			name = target[1 : len(target)-1]
		}
		if len(p.LibDir)+len(name) >= MaxPath {
			return "", p.diag.Fail(1, "Included library name '%s' too long (%d characters maximum).", name, MaxPath-len(p.LibDir)-1)
		}
		return filepath.Join(p.LibDir, name), nil
	}
	if len(target) >= MaxPath {
		return "", p.diag.Fail(1, "Included file name '%s' too long (%d characters maximum).", target, MaxPath-1)
	}
	return target, nil
}

// include processes the named file in place of the directive line. The
// conditional state is shared with the including file.
func (p *Preprocessor) include(target string, out *bufio.Writer) error {
	path, err := p.resolveInclude(target)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err == nil {
		var fi os.FileInfo
		if fi, err = f.Stat(); err == nil && fi.IsDir() {
			err = os.ErrInvalid
		}
		if err != nil {
			f.Close()
		}
	}
	if err != nil {
		return p.diag.Fail(1, "Can't open included file '%s'.", path)
	}
	defer f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if p.includeStackGuard[abs] {
		return p.diag.Fail(1, "Recursive inclusion of '%s'.", path)
	}
	p.includeStackGuard[abs] = true
	defer delete(p.includeStackGuard, abs)

	p.included = append(p.included, path)
	p.Logger.Debug("including", "file", path, "depth", p.diag.Depth())

	p.diag.Push(path)
	defer p.diag.Pop()
	return p.processFile(f, out)
}
