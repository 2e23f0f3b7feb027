package server

// parseCommand splits a command line into tokens. Tokens are separated
// by spaces; double quotes group words into a single token and are not
// part of the token. An unterminated quote runs to the end of the line.
func parseCommand(line string) []string {
	var args []string
	var current []byte
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ' ' && !inQuotes:
			if len(current) > 0 {
				args = append(args, string(current))
				current = current[:0]
			}
		default:
			current = append(current, c)
		}
	}
	if len(current) > 0 {
		args = append(args, string(current))
	}
	return args
}
