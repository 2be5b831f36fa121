package bfv

var (
	// ExampleParametersDegree4096 is an example parameters set with Degree=4096, three
	// ciphertext moduli of about 109 bits in total and a 17-bit plaintext modulus
	// supporting the SIMD encoding.
	ExampleParametersDegree4096 = ParametersLiteral{
		Degree:                4096,
		PlaintextModulus:      0x10001,
		CiphertextModuliSizes: []int{36, 36, 37}, // 109 bits
	}

	// ExampleParametersDegree8192 is an example parameters set with Degree=8192, five
	// ciphertext moduli of about 218 bits in total and a 17-bit plaintext modulus
	// supporting the SIMD encoding.
	ExampleParametersDegree8192 = ParametersLiteral{
		Degree:                8192,
		PlaintextModulus:      0x10001,
		CiphertextModuliSizes: []int{43, 43, 44, 44, 44}, // 218 bits
	}
)
