package platform

// Command is one daemon message: an ordered list of arguments.
type Command []string

// Backend abstracts the window manager daemon: three read queries and a
// single way to issue a mutation.
type Backend interface {
	Displays() ([]Display, error)
	Spaces() ([]Space, error)
	Windows() ([]Window, error)
	Run(cmd Command) error
}

// SpaceByIndex returns the space with the given index.
func SpaceByIndex(spaces []Space, index int) (Space, bool) {
	for _, s := range spaces {
		if s.Index == index {
			return s, true
		}
	}
	return Space{}, false
}
