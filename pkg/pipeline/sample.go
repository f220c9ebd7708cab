package pipeline

// SampleGrammar is the grammar of [SampleSource].
const SampleGrammar = "python"

// SampleSource is parsed when dump is run without a file.
const SampleSource = `def fibonacci(n: int) -> int:
    if n <= 1:
        return n
    a, b = 0, 1
    for _ in range(2, n + 1):
        a, b = b, a + b
    return b


class Calculator:
    def __init__(self, value: float = 0):
        self.value = value

    def add(self, x: float) -> "Calculator":
        self.value += x
        return self
`

// Sample returns the built-in demonstration input.
func Sample() Input {
	return Input{Source: []byte(SampleSource), Grammar: SampleGrammar}
}
