/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package abcpp preprocesses ABC music notation: it expands #define macros,
// evaluates #ifdef blocks, pulls in #include files and restyles decorations
// and chords line by line.
package abcpp

import (
	"io"
	"strings"

	"github.com/fwessels/abcpp/internal/preprocessor"
)

type Options = preprocessor.Options

// ParseDefine splits a command line definition. "NAME=value" is a macro,
// a bare "NAME" a symbol for #ifdef.
func ParseDefine(arg string) (name, value string, isMacro bool) {
	return preprocessor.ParseDefine(arg)
}

// Preprocess reads r and writes the result to w. Warnings go to
// diagnostics; the first fatal condition is returned. name is used in
// diagnostics and may be empty for standard input.
func Preprocess(name string, r io.Reader, w io.Writer, opts Options, diagnostics io.Writer, defines ...string) error {
	p := preprocessor.NewPreprocessor(opts, diagnostics)
	if err := p.Prepare(defines...); err != nil {
		return err
	}
	return p.Process(name, r, w)
}

// String preprocesses src with warnings discarded.
func String(src string, opts Options, defines ...string) (string, error) {
	var out strings.Builder
	err := Preprocess("", strings.NewReader(src), &out, opts, io.Discard, defines...)
	return out.String(), err
}
