package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/**
 * @brief a 4x4 matrix. Elements are stored so that the translation lives in
 * Data[12..14], which is the layout GLSL reads a mat4 push constant in.
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief Represents a single vertex as consumed by the default pipeline:
 * location 0 position, location 1 colour, location 2 texture coordinate.
 */
type Vertex struct {
	Position Vec3
	Colour   Vec4
	Texcoord Vec2
}

// Size in bytes of one Vertex in a vertex buffer.
const VertexStride = 4 * (3 + 4 + 2)
