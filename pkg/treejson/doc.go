// Package treejson converts virtual trees to and from their document forms.
//
// Three source formats are understood:
//
//   - JSON and YAML, using the Node shape below
//   - HTML fragments with a single root element
//
// The JSON form of a tree is:
//
//	{
//	  "tag": "ul",
//	  "attrs": {"class": ["list", "dark"], "style": {"color": "red"}},
//	  "on": ["click"],
//	  "children": [{"text": "hello"}]
//	}
//
// A Document wraps the root under "root", mirroring the implicit wrapper
// index that every vdom.TreePath starts with. JSONPatch translates a patch
// list into RFC 6902 operations against that document.
//
// Listeners decoded from any source carry the event name and a nil handler.
// Function-valued attributes have no document form and are dropped.
package treejson
