package history

import (
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

// ImportBrowser reads a dump of the browser client's localStorage "chats"
// value. The dump may be the JSON object itself or that object encoded as a
// JSON string (as copied from devtools). Records are returned newest first.
func ImportBrowser(r io.Reader) ([]*Conversation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("export is not valid JSON")
	}

	root := gjson.ParseBytes(data)
	if root.Type == gjson.String {
		inner := root.String()
		if !gjson.Valid(inner) {
			return nil, fmt.Errorf("export string does not contain JSON")
		}
		root = gjson.Parse(inner)
	}
	if !root.IsObject() {
		return nil, fmt.Errorf("export must be an object keyed by conversation id")
	}

	chats, err := decodeChats([]byte(root.Raw))
	if err != nil {
		return nil, err
	}

	list := make([]*Conversation, 0, len(chats))
	for _, c := range chats {
		if err := validate(c); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	sortNewestFirst(list)
	return list, nil
}
