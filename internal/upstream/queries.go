package upstream

// pokemonQuery requests every field the result card can show.
const pokemonQuery = `query GetPokemonDetails($name: String!) {
  pokemon(name: $name) {
    id
    number
    name
    image
    weight { minimum maximum }
    height { minimum maximum }
    classification
    types
    resistant
    attacks {
      fast { name type damage }
      special { name type damage }
    }
    weaknesses
    fleeRate
    maxCP
    evolutions { id number name image }
    evolutionRequirements { amount name }
    maxHP
  }
}`

const namesQuery = `query GetAllPokemonNames($first: Int!) {
  pokemons(first: $first) {
    name
  }
}`

const pingQuery = `query Ping { __typename }`
