package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"story-server/internal/models"
)

// Limits bound the size of a story tree coming from the model.
type Limits struct {
	MaxDepth int // number of node levels, root is depth 1
	MaxNodes int
}

// DefaultLimits are used when a zero Limits value is passed.
var DefaultLimits = Limits{MaxDepth: 16, MaxNodes: 512}

func (l Limits) withDefaults() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultLimits.MaxDepth
	}
	if l.MaxNodes <= 0 {
		l.MaxNodes = DefaultLimits.MaxNodes
	}
	return l
}

// Parser turns raw model output into a validated StoryTree.
type Parser struct {
	validate *validator.Validate
	limits   Limits
}

// NewParser creates a parser enforcing the given limits.
func NewParser(limits Limits) *Parser {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Parser{validate: v, limits: limits.withDefaults()}
}

// Limits returns the effective limits of the parser.
func (p *Parser) Limits() Limits {
	return p.limits
}

// FormatInstructions describes the expected output. It is appended to the
// prompt so the model answers with a single JSON object.
func (p *Parser) FormatInstructions() string {
	schemaJSON, err := json.Marshal(JSONSchema())
	if err != nil {
		// JSONSchema is a static literal
		panic(fmt.Sprintf("marshal story schema: %v", err))
	}
	var b strings.Builder
	b.WriteString("The output should be formatted as a JSON instance that conforms to the JSON schema below.\n\n")
	b.WriteString("Return only the JSON object, without commentary. Nest every option's next node inside the option as \"nextNode\". ")
	b.WriteString(fmt.Sprintf("The tree must not be deeper than %d levels or contain more than %d nodes.\n\n", p.limits.MaxDepth, p.limits.MaxNodes))
	b.WriteString("Here is the output schema:\n```\n")
	b.Write(schemaJSON)
	b.WriteString("\n```")
	return b.String()
}

// Parse extracts, decodes and validates a StoryTree. Every error wraps
// models.ErrSchemaValidation.
func (p *Parser) Parse(raw string) (*StoryTree, error) {
	payload, err := extractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSchemaValidation, err)
	}

	var tree StoryTree
	if err := json.Unmarshal(payload, &tree); err != nil {
		return nil, fmt.Errorf("%w: failed to decode story: %v", models.ErrSchemaValidation, err)
	}

	if err := CheckLimits(&tree, p.limits); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrSchemaValidation, err)
	}

	if err := p.validate.Struct(&tree); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrSchemaValidation, describeValidation(err))
	}
	return &tree, nil
}

// CheckLimits walks the tree iteratively and fails with models.ErrTreeLimit
// when it is deeper or larger than allowed. Options of ending nodes are not
// counted since they are never stored.
func CheckLimits(tree *StoryTree, limits Limits) error {
	limits = limits.withDefaults()
	if tree == nil || tree.RootNode == nil {
		return nil
	}

	type entry struct {
		node  *StoryTreeNode
		depth int
	}
	stack := []entry{{node: tree.RootNode, depth: 1}}
	count := 0
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		count++
		if count > limits.MaxNodes {
			return fmt.Errorf("%w: more than %d nodes", models.ErrTreeLimit, limits.MaxNodes)
		}
		if top.depth > limits.MaxDepth {
			return fmt.Errorf("%w: deeper than %d levels", models.ErrTreeLimit, limits.MaxDepth)
		}
		if top.node.IsEnding.IsTrue() {
			continue
		}
		for _, opt := range top.node.Options {
			if opt.NextNode != nil {
				stack = append(stack, entry{node: opt.NextNode, depth: top.depth + 1})
			}
		}
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

var errNoJSONObject = errors.New("no JSON object found in model output")

// extractJSONObject finds the JSON object inside model output. It accepts
// bare JSON, a fenced block, or an object surrounded by prose. Candidates
// start at each '{' in turn; the decoder decides where the object ends.
func extractJSONObject(raw string) ([]byte, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errors.New("model output is empty")
	}
	if strings.HasPrefix(text, "```") {
		// drop the fence line (```json)
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimLeft(text, "`")
		}
	}

	var firstErr error
	for offset := 0; offset < len(text); {
		start := strings.IndexByte(text[offset:], '{')
		if start < 0 {
			break
		}
		start += offset

		var obj json.RawMessage
		err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&obj)
		if err == nil {
			return obj, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		offset = start + 1
	}
	if firstErr != nil {
		return nil, fmt.Errorf("failed to decode story: %w", firstErr)
	}
	return nil, errNoJSONObject
}
