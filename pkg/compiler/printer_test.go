package compiler

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestDumpTree(t *testing.T) {
	src := `typedef int myint;
myint x = 2;
char s[] = "hi";
int a[3] = {1, 2, 3};
int main() {
	int i;
	for (i = 0; i < 3; i = i + 1) {
		x = x + i;
	}
	;
}
`
	program := mustParse(t, src)

	var sb strings.Builder
	DumpTree(&sb, program)

	want := `- ProgramRoot
  - Typedef; base type: int, new typename: myint
  - Identifier: x; type: custom
  - Identifier: s; type: string
  - Identifier: a; type: int[]
  - MainFunction
    - CompoundStatement
      - Identifier: i; type: int
      - ForNode
        - CompoundStatement
`
	be.Equal(t, sb.String(), want)
}

func TestDumpTreeLeafCondition(t *testing.T) {
	program := mustParse(t, "int main() { int x; for (; x;) ; }")

	var sb strings.Builder
	DumpTree(&sb, program)

	want := `- ProgramRoot
  - MainFunction
    - CompoundStatement
      - Identifier: x; type: int
      - ForNode
        - Identifier: x
`
	be.Equal(t, sb.String(), want)
}

func TestFormatSource(t *testing.T) {
	src := `typedef char line[80];
int total = 0;
char s[] = "a\tb";
int main() {
	int i;
	for (i = 0; i < 10; i = i + 1) {
		total = total + i * 2;
	}
	s[0] = 'x';
}
`
	program := mustParse(t, src)

	var sb strings.Builder
	FormatSource(&sb, program)

	want := `typedef char line[80];
int total = 0;
char s[] = "a\tb";
int main() {
	int i;
	for (i = 0; i < 10; i = i + 1) {
		total = total + i * 2;
	}
	s[0] = 'x';
}
`
	be.Equal(t, sb.String(), want)
}

func TestFormatParenthesization(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"No Redundant Parens", "int v = (1 + 2 * 3);", "int v = 1 + 2 * 3;"},
		{"Keeps Needed Parens", "int v = (1 + 2) * 3;", "int v = (1 + 2) * 3;"},
		{"Right Associativity Parens", "int v = 1 - (2 - 3);", "int v = 1 - (2 - 3);"},
		{"Left Chain Stays Flat", "int v = 1 - 2 - 3;", "int v = 1 - 2 - 3;"},
		{"Comparison Of Shifts", "int v = 1 << 2 < 3;", "int v = 1 << 2 < 3;"},
		{"Negative Constant", "int v = -5 + 1;", "int v = -5 + 1;"},
		{"Index Expression", "int v = a[i + 1] % 2;", "int v = a[i + 1] % 2;"},
		{"Char Escape", `char c = '\n';`, `char c = '\n';`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program := mustParse(t, tt.src)

			var sb strings.Builder
			FormatSource(&sb, program)
			be.Equal(t, strings.TrimSuffix(sb.String(), "\n"), tt.want)
		})
	}
}

// Formatting output and reparsing it must reproduce the same structure; a
// second formatting pass makes that visible as text equality.
func TestFormatRoundTrip(t *testing.T) {
	sources := []string{
		"int main() {}\n",
		"typedef int myint;\nmyint x = 0x1F;\n",
		"typedef short grid[4 * 4];\ngrid cells;\n",
		"char s[10] = \"a\\\"b\\\\c\";\n",
		"int a[] = {1, 2 + 3, 'x'};\n",
		"int main() {\n\tint i;\n\tfor (i = 0; i < 4; i = i + 1) ;\n\tfor (;;) { ; }\n}\n",
		"int main() {\n\tint x;\n\t{\n\t\tchar x;\n\t\tx = 'a';\n\t}\n}\n",
		"int v = ((1 + 2) * 3 - -4) / (5 % 2);\n",
	}

	for _, src := range sources {
		first := mustParse(t, src)

		var pass1 strings.Builder
		FormatSource(&pass1, first)

		second := mustParse(t, pass1.String())
		var pass2 strings.Builder
		FormatSource(&pass2, second)

		be.Equal(t, pass2.String(), pass1.String())

		// The reparsed tree also dumps identically.
		var dump1, dump2 strings.Builder
		DumpTree(&dump1, first)
		DumpTree(&dump2, second)
		be.Equal(t, dump2.String(), dump1.String())
	}
}
