package logger

// Most non-fatal diagnostics are given a message ID matching one of the
// diagnostic codes the graph core can emit. Fatal errors don't strictly
// need one but carry it anyway so callers can distinguish error causes
// without string-matching Msg.Text.
type MsgID uint8

const (
	MsgID_None MsgID = iota

	// Configuration / graph integrity — fatal
	MsgID_UnresolvedEntry
	MsgID_DuplicateEntryPoints
	MsgID_InvalidExternalID

	// Loader / resolution
	MsgID_BadLoader        // fatal
	MsgID_UnresolvedImport // fatal for relative specifiers, warning for bare ones

	// Advisory — warnings
	MsgID_CircularDependency
	MsgID_NamespaceConflict
	MsgID_UnusedExternalImport
)

var msgIDNames = map[MsgID]string{
	MsgID_UnresolvedEntry:      "UNRESOLVED_ENTRY",
	MsgID_DuplicateEntryPoints: "DUPLICATE_ENTRY_POINTS",
	MsgID_InvalidExternalID:    "INVALID_EXTERNAL_ID",
	MsgID_BadLoader:            "BAD_LOADER",
	MsgID_UnresolvedImport:     "UNRESOLVED_IMPORT",
	MsgID_CircularDependency:   "CIRCULAR_DEPENDENCY",
	MsgID_NamespaceConflict:    "NAMESPACE_CONFLICT",
	MsgID_UnusedExternalImport: "UNUSED_EXTERNAL_IMPORT",
}

func (id MsgID) String() string {
	if name, ok := msgIDNames[id]; ok {
		return name
	}
	return "none"
}
