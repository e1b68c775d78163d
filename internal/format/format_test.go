package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/zbxport/internal/tree"
)

func sample() *tree.Node {
	host := tree.NewObject().
		SetString("host", "web01").
		SetString("description", `load > 5 & "quoted" <tag>`).
		Set("groups", tree.NewArray(tree.Object("name", "Linux servers"))).
		Set("items", tree.NewArray(
			tree.NewObject().
				SetString("key", "system.cpu.load[all,avg1]").
				Set("preprocessing", tree.NewArray(tree.Object("type", "MULTIPLIER", "parameters", "8"))),
		))
	body := tree.NewObject().
		SetString("version", "5.0").
		SetString("date", "2021-03-04T05:06:07Z").
		Set("hosts", tree.NewArray(host))
	return tree.NewObject().Set("zabbix_export", body)
}

func TestRoundTripEveryFormat(t *testing.T) {
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			w, err := NewWriter(f)
			require.NoError(t, err)
			r, err := NewReader(f)
			require.NoError(t, err)

			data, err := w.Write(sample())
			require.NoError(t, err)
			got, err := r.Read(data)
			require.NoError(t, err)
			assert.True(t, tree.Equal(sample(), got), "%s round trip changed the tree:\n%s", f, data)
		})
	}
}

func TestJSONWriterIsCompactAndOrdered(t *testing.T) {
	doc := tree.NewObject().Set("b", tree.StringArray("x", "<y>")).SetString("a", "1")
	data, err := jsonWriter{}.Write(doc)
	require.NoError(t, err)
	assert.Equal(t, `{"b":["x","<y>"],"a":"1"}`, string(data))
}

func TestJSONReader(t *testing.T) {
	n, err := jsonReader{}.Read([]byte(`{"n": 1.50, "s": "x", "z": null, "l": []}`))
	require.NoError(t, err)
	assert.Equal(t, "1.50", n.String("n"))
	assert.Equal(t, "", n.String("z"))
	assert.True(t, n.Get("l").IsArray())

	for name, doc := range map[string]string{
		"duplicate": `{"a": "1", "a": "2"}`,
		"boolean":   `{"a": true}`,
		"trailing":  `{"a": "1"} {}`,
		"array":     `["a"]`,
		"truncated": `{"a": `,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := jsonReader{}.Read([]byte(doc))
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestXMLWriter(t *testing.T) {
	doc := tree.NewObject().Set("zabbix_export", tree.NewObject().
		SetString("version", "5.0").
		SetString("description", "").
		Set("dependencies", tree.NewArray(tree.Object("name", "a&b"))).
		Set("tags", tree.NewArray()))

	data, err := xmlWriter{}.Write(doc)
	require.NoError(t, err)
	want := `<?xml version="1.0" encoding="UTF-8"?>
<zabbix_export>
    <version>5.0</version>
    <description/>
    <dependencies>
        <dependency>
            <name>a&amp;b</name>
        </dependency>
    </dependencies>
    <tags/>
</zabbix_export>
`
	assert.Equal(t, want, string(data))
}

func TestXMLWriterNeedsSingular(t *testing.T) {
	doc := tree.NewObject().Set("root", tree.NewObject().Set("data", tree.StringArray("x")))
	_, err := xmlWriter{}.Write(doc)
	assert.Error(t, err)
}

func TestXMLWriterKeepsWhitespace(t *testing.T) {
	doc := tree.NewObject().Set("zabbix_export", tree.NewObject().
		SetString("description", "line one\n\tline two\r\nend"))
	data, err := xmlWriter{}.Write(doc)
	require.NoError(t, err)
	got, err := xmlReader{}.Read(data)
	require.NoError(t, err)
	assert.True(t, tree.Equal(doc, got), "round trip changed the tree:\n%s", data)
}

func TestXMLWriterRejectsUnrepresentableText(t *testing.T) {
	for name, value := range map[string]string{
		"control character": "bell\x07",
		"nul":               "a\x00b",
		"invalid utf-8":     "caf\xe9",
		"noncharacter":      "x\uFFFE",
	} {
		t.Run(name, func(t *testing.T) {
			host := tree.NewObject().SetString("host", "web01").SetString("description", value)
			doc := tree.NewObject().Set("zabbix_export", tree.NewObject().
				Set("hosts", tree.NewArray(tree.Object("host", "db01"), host)))

			_, err := xmlWriter{}.Write(doc)
			require.ErrorIs(t, err, ErrUnrepresentable)
			assert.Contains(t, err.Error(), "/zabbix_export/hosts/host(2)/description")
		})
	}
}

func TestOtherWritersCarryControlCharacters(t *testing.T) {
	doc := tree.NewObject().Set("zabbix_export", tree.NewObject().SetString("description", "bell\x07"))
	for _, f := range []Format{JSON, YAML} {
		t.Run(string(f), func(t *testing.T) {
			w, err := NewWriter(f)
			require.NoError(t, err)
			r, err := NewReader(f)
			require.NoError(t, err)
			data, err := w.Write(doc)
			require.NoError(t, err)
			got, err := r.Read(data)
			require.NoError(t, err)
			assert.True(t, tree.Equal(doc, got), "%s round trip changed the tree:\n%s", f, data)
		})
	}
}

func TestXMLReader(t *testing.T) {
	n, err := xmlReader{}.Read([]byte(`<zabbix_export>
  <version>5.0</version>
  <groups><group><name>A</name></group><group><name>B</name></group></groups>
  <templates/>
</zabbix_export>`))
	require.NoError(t, err)
	body := n.Get("zabbix_export")
	require.True(t, body.IsObject())
	assert.Equal(t, "5.0", body.String("version"))
	require.True(t, body.Get("groups").IsArray())
	assert.Equal(t, 2, body.Get("groups").Len())
	// Empty elements read as empty scalars; the validator decides their shape.
	assert.True(t, body.Get("templates").IsScalar())

	_, err = xmlReader{}.Read([]byte(`<a><b>1</b><b>2</b><c/></a>`))
	assert.ErrorIs(t, err, ErrSyntax)
	_, err = xmlReader{}.Read([]byte(`<a><b>1</a>`))
	assert.ErrorIs(t, err, ErrSyntax)
	_, err = xmlReader{}.Read([]byte(``))
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestYAMLReader(t *testing.T) {
	n, err := yamlReader{}.Read([]byte("a: 1\nb: ~\nc: [x, y]\n"))
	require.NoError(t, err)
	assert.Equal(t, "1", n.String("a"))
	assert.Equal(t, "", n.String("b"))
	assert.Equal(t, []string{"x", "y"}, n.Get("c").Strings())

	_, err = yamlReader{}.Read([]byte("a: 1\na: 2\n"))
	assert.ErrorIs(t, err, ErrSyntax)
	_, err = yamlReader{}.Read([]byte("- a\n"))
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestYAMLWriterQuotesNothingAway(t *testing.T) {
	doc := tree.NewObject().SetString("yes", "no").SetString("n", "0123").Set("e", tree.NewArray())
	data, err := yamlWriter{}.Write(doc)
	require.NoError(t, err)
	back, err := yamlReader{}.Read(data)
	require.NoError(t, err)
	assert.True(t, tree.Equal(doc, back), string(data))
}

func TestParse(t *testing.T) {
	f, err := Parse(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	_, err = Parse("csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	f, err = FromFilename("dump.yml")
	require.NoError(t, err)
	assert.Equal(t, YAML, f)
	_, err = FromFilename("README")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = NewWriter("toml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSingular(t *testing.T) {
	for tag, want := range map[string]string{
		"hosts":         "host",
		"dependencies":  "dependency",
		"preprocessing": "step",
		"tls_accept":    "option",
		"data":          "data",
	} {
		assert.Equal(t, want, Singular(tag), tag)
	}
}
