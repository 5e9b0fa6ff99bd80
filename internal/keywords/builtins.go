package keywords

import "strings"

var (
	socketMembers = []Keyword{
		{Name: "SocketStatus", Kind: KindVariable, Type: "INTEGER"},
		{Name: "SocketRxBuf", Kind: KindVariable, Type: "STRING"},
	}

	fileInfoMembers = []Keyword{
		{Name: "Name", Kind: KindVariable, Type: "STRING"},
		{Name: "iAttributes", Kind: KindVariable, Type: "INTEGER"},
		{Name: "iTime", Kind: KindVariable, Type: "INTEGER"},
		{Name: "iDate", Kind: KindVariable, Type: "INTEGER"},
		{Name: "lSize", Kind: KindVariable, Type: "LONG_INTEGER"},
	}

	cEventMembers = []Keyword{
		{Name: "Close", Kind: KindMethod, Type: "void"},
		{Name: "Reset", Kind: KindMethod, Type: "Signed_Long"},
		{Name: "Set", Kind: KindMethod, Type: "Signed_Long"},
		{Name: "Wait", Kind: KindMethod, Type: "Signed_Long"},
	}

	cMutexMembers = []Keyword{
		{Name: "Close", Kind: KindMethod, Type: "void"},
		{Name: "ReleaseMutex", Kind: KindMethod, Type: "void"},
		{Name: "WaitForMutex", Kind: KindMethod, Type: "Signed_Long"},
	}
)

// Members returns the members of a built-in variable type such as
// TCP_CLIENT or CEvent, or nil when the type has none.
func Members(typeName string) []Keyword {
	var members []Keyword
	switch strings.ToLower(typeName) {
	case "tcp_client", "tcp_server", "udp_socket":
		members = socketMembers
	case "file_info":
		members = fileInfoMembers
	case "cevent":
		members = cEventMembers
	case "cmutex":
		members = cMutexMembers
	}
	return append([]Keyword(nil), members...)
}
