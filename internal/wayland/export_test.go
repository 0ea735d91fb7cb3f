package wayland

// IsZombie reports whether id was retired and still awaits delete_id.
func IsZombie(c *Conn, id ObjectID) bool {
	_, ok := c.zombies[id]
	return ok
}
