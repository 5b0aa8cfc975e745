package memory_map

// Win32 page protection values. Mirrored here so the decoding can be shared
// and tested on every platform.
const (
	PageNoAccess         = 0x01
	PageReadOnly         = 0x02
	PageReadWrite        = 0x04
	PageWriteCopy        = 0x08
	PageExecute          = 0x10
	PageExecuteRead      = 0x20
	PageExecuteReadWrite = 0x40
	PageExecuteWriteCopy = 0x80
	PageGuard            = 0x100
	PageNoCache          = 0x200
	PageWriteCombine     = 0x400

	pageModifiers = PageGuard | PageNoCache | PageWriteCombine
)

// ProtectionPerms decodes a page protection value into the same "rwxp" form
// used by /proc/<pid>/maps. Guard pages read as inaccessible.
func ProtectionPerms(protect uint32) string {
	perms := []byte("---p")
	if protect&PageGuard != 0 {
		return string(perms)
	}

	switch protect &^ pageModifiers {
	case PageReadOnly:
		perms[0] = 'r'
	case PageReadWrite, PageWriteCopy:
		perms[0], perms[1] = 'r', 'w'
	case PageExecute:
		perms[2] = 'x'
	case PageExecuteRead:
		perms[0], perms[2] = 'r', 'x'
	case PageExecuteReadWrite, PageExecuteWriteCopy:
		perms[0], perms[1], perms[2] = 'r', 'w', 'x'
	}
	return string(perms)
}
