package texture

// CubeAdjacency returns the edge links of a six-face cube map numbered
// +x, -x, +y, -y, +z, -z. Each face's (u,v) runs along the cube unwrap
// used by cube.Project, so filters cross seams without discontinuity.
func CubeAdjacency() [6][4]Adjacency {
	a := func(f int, e Edge) Adjacency { return Adjacency{Face: f, Edge: e} }
	return [6][4]Adjacency{
		{a(3, EdgeRight), a(5, EdgeLeft), a(2, EdgeRight), a(4, EdgeRight)},
		{a(3, EdgeLeft), a(4, EdgeLeft), a(2, EdgeLeft), a(5, EdgeRight)},
		{a(4, EdgeTop), a(0, EdgeTop), a(5, EdgeTop), a(1, EdgeTop)},
		{a(5, EdgeBottom), a(0, EdgeBottom), a(4, EdgeBottom), a(1, EdgeBottom)},
		{a(3, EdgeTop), a(0, EdgeLeft), a(2, EdgeBottom), a(1, EdgeRight)},
		{a(3, EdgeBottom), a(1, EdgeLeft), a(2, EdgeTop), a(0, EdgeRight)},
	}
}

// CubeManifest returns the manifest of a cube map made of six face images
// given in +x, -x, +y, -y, +z, -z order.
func CubeManifest(images [6]string, channels int) Manifest {
	adj := CubeAdjacency()
	m := Manifest{Channels: channels, Faces: make([]ManifestFace, 6)}
	for f, img := range images {
		mf := ManifestFace{Image: img, AdjFaces: make([]int, 4), AdjEdges: make([]int, 4)}
		for e, a := range adj[f] {
			mf.AdjFaces[e] = a.Face
			mf.AdjEdges[e] = int(a.Edge)
		}
		m.Faces[f] = mf
	}
	return m
}
