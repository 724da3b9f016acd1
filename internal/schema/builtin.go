package schema

// BaseSDL is the host's own schema. Extension fragments extend its root
// types; it is prepended to the merged fragment text before the composed
// schema is validated and handed to the execution engine.
const BaseSDL = `"The forge API entry point."
type Query {
  "Version of the extension API exposed by this server."
  apiVersion: String!
}

type Mutation {
  "No-op mutation kept so extensions can extend the Mutation root."
  noop: Boolean
}
`
