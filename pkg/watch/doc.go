// Package watch streams a live virtual tree to websocket followers.
//
// A Hub holds the latest tree and a frame sequence. Every change is diffed
// once and broadcast as a patches frame; followers that join late, fall too
// far behind or ask for it receive a snapshot instead. Frames use the binary
// format of package protocol.
//
// A Source watches a tree file with fsnotify and feeds each saved version
// through a dom.Updater into the Hub. A Mirror is the follower side: it
// replays the stream onto an in-memory live tree.
//
//	hub := watch.NewHub(watch.DefaultConfig())
//	src := watch.NewSource("page.html", updater, hub)
//	go src.Run(ctx)
//	http.ListenAndServe(":7070", watch.NewServer(hub, registry))
package watch
