package creatium

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrStructuralMismatch is returned when a template lacks the widget path the
// table is embedded at.
var ErrStructuralMismatch = errors.New("template structure mismatch")

const (
	// ASTVersion is the datamix.ast marker the batch tool writes.
	ASTVersion = "4.4"
	// Placeholder is the code value stored in an extracted template.
	Placeholder = "PLACEHOLDER_HTML"
)

var htmlPath = []string{"data", "embeds", "cont", "html"}

// Document is a decoded page-builder widget. Its structure is opaque apart
// from the html embed at data.embeds.cont.html.
type Document struct {
	root map[string]any
}

// Parse decodes a template. Numbers are kept as json.Number so they are
// written back unchanged.
func Parse(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("decode template: %w: not a JSON object", ErrStructuralMismatch)
	}
	return &Document{root: root}, nil
}

// Load reads and decodes a template file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return Parse(data)
}

// Code returns data.embeds.cont.html.children[0].code.
func (d *Document) Code() (string, error) {
	child, err := d.firstChild()
	if err != nil {
		return "", err
	}
	code, ok := child["code"].(string)
	if !ok {
		return "", mismatch("children[0].code")
	}
	return code, nil
}

// SetCode replaces data.embeds.cont.html.children[0].code. The field must
// already exist as a string.
func (d *Document) SetCode(html string) error {
	child, err := d.firstChild()
	if err != nil {
		return err
	}
	if _, ok := child["code"].(string); !ok {
		return mismatch("children[0].code")
	}
	child["code"] = html
	return nil
}

// SetAST sets data.embeds.cont.html.datamix.ast. The datamix object must
// exist; the ast key is created when missing.
func (d *Document) SetAST(version string) error {
	embed, err := lookup(d.root, htmlPath...)
	if err != nil {
		return err
	}
	datamix, ok := embed["datamix"].(map[string]any)
	if !ok {
		return mismatch("datamix")
	}
	datamix["ast"] = version
	return nil
}

// SetUID replaces the top-level widget uid.
func (d *Document) SetUID(uid string) {
	d.root["uid"] = uid
}

// UID returns the top-level widget uid, or "" when absent.
func (d *Document) UID() string {
	uid, _ := d.root["uid"].(string)
	return uid
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	return &Document{root: deepCopy(d.root).(map[string]any)}
}

// Marshal encodes the document compactly. Non-ASCII text and HTML markup are
// written as is.
func (d *Document) Marshal() ([]byte, error) {
	return d.encode("")
}

// MarshalIndent encodes the document with two-space indentation.
func (d *Document) MarshalIndent() ([]byte, error) {
	return d.encode("  ")
}

func (d *Document) encode(indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Embed writes html into a copy of tpl and returns the encoded result. tpl is
// not modified.
func Embed(tpl *Document, html string) ([]byte, error) {
	doc := tpl.Clone()
	if err := doc.SetCode(html); err != nil {
		return nil, err
	}
	return doc.Marshal()
}

func (d *Document) firstChild() (map[string]any, error) {
	embed, err := lookup(d.root, htmlPath...)
	if err != nil {
		return nil, err
	}
	children, ok := embed["children"].([]any)
	if !ok || len(children) == 0 {
		return nil, mismatch("children[0]")
	}
	child, ok := children[0].(map[string]any)
	if !ok {
		return nil, mismatch("children[0]")
	}
	return child, nil
}

func lookup(m map[string]any, path ...string) (map[string]any, error) {
	cur := m
	for i, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrStructuralMismatch, strings.Join(path[:i+1], "."))
		}
		cur = next
	}
	return cur, nil
}

func mismatch(field string) error {
	return fmt.Errorf("%w: missing %s.%s", ErrStructuralMismatch, strings.Join(htmlPath, "."), field)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
