package graph

// Schema is the GraphQL SDL served on the single /graphql endpoint.
// Timestamps serialize as millisecond-epoch strings so the feed cursor
// round-trips through createdAt unchanged.
const Schema = `
schema {
	query: Query
	mutation: Mutation
}

type Query {
	me: User
	posts(limit: Int!, cursor: String): PaginatedPosts!
	post(id: Int!): Post
}

type Mutation {
	register(options: UsernamePasswordInput!): UserResponse!
	login(usernameOrEmail: String!, password: String!): UserResponse!
	logout: Boolean!
	forgotPassword(email: String!): Boolean!
	changePassword(token: String!, newPassword: String!): UserResponse!
	createPost(input: PostInput!): Post!
	updatePost(id: Int!, title: String!, text: String!): Post
	deletePost(id: Int!): Boolean!
	vote(postId: Int!, value: Int!): Boolean!
}

type User {
	id: Int!
	username: String!
	email: String!
	createdAt: String!
	updatedAt: String!
}

type Post {
	id: Int!
	title: String!
	text: String!
	textSnippet: String!
	points: Int!
	creatorId: Int!
	creator: User!
	voteStatus: Int
	createdAt: String!
	updatedAt: String!
}

type PaginatedPosts {
	posts: [Post!]!
	hasMore: Boolean!
}

type FieldError {
	field: String!
	message: String!
}

type UserResponse {
	errors: [FieldError!]
	user: User
}

input UsernamePasswordInput {
	username: String!
	email: String!
	password: String!
}

input PostInput {
	title: String!
	text: String!
}
`
